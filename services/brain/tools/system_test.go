// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestGetVersions(t *testing.T) {
	s := NewSystemTool()
	payload, err := s.GetVersions(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetVersions() err = %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want ok", payload)
	}
	if payload["service"] != "delilah-brain" {
		t.Errorf("service = %v", payload["service"])
	}
	if payload["go_runtime"] == "" {
		t.Error("go_runtime is empty")
	}
}

func TestSnapshotCaptureCarriesLabel(t *testing.T) {
	s := NewSystemTool()
	payload, err := s.SnapshotCapture(context.Background(), map[string]any{"label": "pre-deploy"})
	if err != nil {
		t.Fatalf("SnapshotCapture() err = %v", err)
	}
	if payload["ok"] != true || payload["label"] != "pre-deploy" {
		t.Errorf("payload = %v", payload)
	}
	if payload["snapshot_id"] == "" {
		t.Error("snapshot_id is empty")
	}
}

func TestSnapshotCaptureWritesBundle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BRAIN_RECOVERY_DIR", dir)
	s := NewSystemTool()

	payload, err := s.SnapshotCapture(context.Background(), nil)
	if err != nil {
		t.Fatalf("SnapshotCapture() err = %v", err)
	}
	path, _ := payload["bundle_path"].(string)
	if path == "" {
		t.Fatalf("bundle_path missing: %v", payload)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("bundle not written: %v", err)
	}
	if !strings.Contains(string(raw), `"service": "delilah-brain"`) {
		t.Errorf("bundle content: %s", raw)
	}
}

func TestHealthCheckFallsThroughCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	// First candidate points at a closed port, second at the live server.
	t.Setenv("BRAIN_HEALTH_CANDIDATES", "http://127.0.0.1:1/health,"+srv.URL)
	s := NewSystemTool()

	payload, err := s.HealthCheck(context.Background(), nil)
	if err != nil {
		t.Fatalf("HealthCheck() err = %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want ok", payload)
	}
	if payload["reachable"] != srv.URL {
		t.Errorf("reachable = %v, want %v", payload["reachable"], srv.URL)
	}
	attempted, ok := payload["attempted"].([]string)
	if !ok || len(attempted) != 2 {
		t.Errorf("attempted = %v, want both candidates listed", payload["attempted"])
	}
}

func TestHealthCheckAllUnreachableIsSemanticFailure(t *testing.T) {
	t.Setenv("BRAIN_HEALTH_CANDIDATES", "http://127.0.0.1:1/health")
	s := NewSystemTool()
	payload, err := s.HealthCheck(context.Background(), nil)
	if err != nil {
		t.Fatalf("HealthCheck() err = %v, want nil", err)
	}
	if payload["ok"] != false {
		t.Errorf("payload ok = %v, want false", payload["ok"])
	}
}
