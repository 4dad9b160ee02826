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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeWeatherUpstream serves the geocode, point, and forecast endpoints
// from one mux so the tool exercises its full HTTP chain.
func fakeWeatherUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat":"41.88","lon":"-87.63","display_name":"Chicago, Cook County, Illinois"}]`)
	})
	mux.HandleFunc("/points/41.88,-87.63", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"properties":{"forecast":%q}}`, srv.URL+"/forecast")
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{"periods":[{"temperature":72,"temperatureUnit":"F","shortForecast":"Sunny"}]}}`)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testWeatherTool(baseURL string) *WeatherTool {
	return &WeatherTool{
		httpClient:      &http.Client{Timeout: 2 * time.Second},
		geocodeBaseURL:  baseURL,
		forecastBaseURL: baseURL,
		defaultLocation: "Rockford, MI 49341",
	}
}

func TestWeatherHappyPath(t *testing.T) {
	srv := fakeWeatherUpstream(t)
	w := testWeatherTool(srv.URL)

	payload, err := w.Call(context.Background(), map[string]any{"location": "Chicago"})
	if err != nil {
		t.Fatalf("Call() err = %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want ok", payload)
	}
	summary, _ := payload["summary"].(string)
	if !strings.HasPrefix(summary, "Chicago: 72 F, Sunny.") {
		t.Errorf("summary = %q", summary)
	}
	if payload["location"] != "Chicago" {
		t.Errorf("location = %v, want Chicago", payload["location"])
	}
}

func TestWeatherFallsBackToDefaultLocation(t *testing.T) {
	srv := fakeWeatherUpstream(t)
	w := testWeatherTool(srv.URL)
	w.defaultLocation = "Chicago"

	payload, err := w.Call(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Call() err = %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want ok via default location", payload)
	}
}

// A forced upstream failure must surface as a semantic failure, never as a
// panic or returned error.
func TestWeatherGeocodeFailureNeverRaises(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	w := testWeatherTool(srv.URL)

	payload, err := w.Call(context.Background(), map[string]any{"location": "Chicago"})
	if err != nil {
		t.Fatalf("Call() err = %v, want nil", err)
	}
	if payload["ok"] != false {
		t.Fatalf("payload ok = %v, want false", payload["ok"])
	}
	if msg, _ := payload["error"].(string); !strings.Contains(msg, "could not resolve location") {
		t.Errorf("error = %q", msg)
	}
	if payload["location"] != "Chicago" {
		t.Errorf("location = %v, want echoed back for the caller", payload["location"])
	}
}

func TestWeatherNoGeocodeMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(srv.Close)
	w := testWeatherTool(srv.URL)

	payload, _ := w.Call(context.Background(), map[string]any{"location": "Nowhereville XYZ"})
	if payload["ok"] != false {
		t.Fatalf("payload ok = %v, want false for unresolvable location", payload["ok"])
	}
}

func TestWeatherRetriesTransientFailure(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"lat":"41.88","lon":"-87.63","display_name":"Chicago"}]`)
	})
	mux.HandleFunc("/points/41.88,-87.63", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"properties":{"forecast":%q}}`, srv.URL+"/forecast")
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{"periods":[{"temperature":30,"temperatureUnit":"F","shortForecast":"Snow"}]}}`)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	w := testWeatherTool(srv.URL)

	payload, _ := w.Call(context.Background(), map[string]any{"location": "Chicago"})
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want success after retry", payload)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
