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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version is the brain service version reported by system.get_versions.
// Overridden at build time via -ldflags.
var Version = "dev"

const probeTimeout = 3 * time.Second

// SystemTool implements the read-only system probes: health_check,
// get_versions, and snapshot_capture.
type SystemTool struct {
	httpClient *http.Client

	// healthCandidates are probed in order; the first reachable one wins.
	// Ordered service-name DNS first, then loopback, then the container
	// bridge, so the probe degrades gracefully across deployment
	// topologies (compose network, bare host, sibling container).
	healthCandidates []string
}

// NewSystemTool builds the system tool. BRAIN_HEALTH_CANDIDATES overrides
// the probe list with a comma-separated set of URLs.
func NewSystemTool() *SystemTool {
	candidates := []string{
		"http://delilah-llm:11434/api/version",
		"http://localhost:11434/api/version",
		"http://172.17.0.1:11434/api/version",
	}
	if raw := os.Getenv("BRAIN_HEALTH_CANDIDATES"); raw != "" {
		candidates = candidates[:0]
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				candidates = append(candidates, c)
			}
		}
	}
	return &SystemTool{
		httpClient:       &http.Client{Timeout: probeTimeout},
		healthCandidates: candidates,
	}
}

// HealthCheck probes the candidate endpoints in order and reports the first
// reachable one plus the full attempted list. All candidates unreachable is
// a semantic failure, not an error: the payload carries ok=false.
func (s *SystemTool) HealthCheck(ctx context.Context, _ map[string]any) (map[string]any, error) {
	attempted := make([]string, 0, len(s.healthCandidates))
	for _, candidate := range s.healthCandidates {
		attempted = append(attempted, candidate)
		if s.reachable(ctx, candidate) {
			return OKPayload(map[string]any{
				"reachable": candidate,
				"attempted": attempted,
				"summary":   fmt.Sprintf("dependency reachable at %s", candidate),
			}), nil
		}
	}
	return ErrorPayload("no health candidate reachable", map[string]any{
		"attempted": attempted,
	}), nil
}

func (s *SystemTool) reachable(ctx context.Context, endpoint string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// GetVersions reports static runtime metadata.
func (s *SystemTool) GetVersions(_ context.Context, _ map[string]any) (map[string]any, error) {
	hostname, _ := os.Hostname()
	return OKPayload(map[string]any{
		"service":    "delilah-brain",
		"version":    Version,
		"go_runtime": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		"hostname":   hostname,
		"chat_model": os.Getenv("CHAT_MODEL"),
		"summary":    fmt.Sprintf("delilah-brain %s (%s)", Version, runtime.Version()),
	}), nil
}

// SnapshotCapture records a point-in-time runtime snapshot. The payload
// always carries the snapshot; when BRAIN_RECOVERY_DIR is set, a versions
// bundle is also written there for post-mortem pickup. Nothing in the
// snapshot is secret-bearing.
func (s *SystemTool) SnapshotCapture(_ context.Context, args map[string]any) (map[string]any, error) {
	label, _ := args["label"].(string)
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snapshot := map[string]any{
		"snapshot_id": uuid.NewString(),
		"label":       label,
		"captured_at": time.Now().UTC().Format(time.RFC3339),
		"service":     "delilah-brain",
		"version":     Version,
		"go_runtime":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"heap_bytes":  mem.HeapAlloc,
	}
	if dir := os.Getenv("BRAIN_RECOVERY_DIR"); dir != "" {
		if path, err := writeSnapshotBundle(dir, snapshot); err != nil {
			slog.Warn("snapshot bundle write failed", "dir", dir, "error", err)
		} else {
			snapshot["bundle_path"] = path
		}
	}
	snapshot["summary"] = fmt.Sprintf("snapshot captured (%d goroutines)", runtime.NumGoroutine())
	return OKPayload(snapshot), nil
}

func writeSnapshotBundle(dir string, snapshot map[string]any) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("snapshot_%s.json", snapshot["snapshot_id"]))
	if err := os.WriteFile(path, raw, 0640); err != nil {
		return "", err
	}
	return path, nil
}
