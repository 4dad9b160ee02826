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
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultGeocodeBaseURL  = "https://nominatim.openstreetmap.org"
	defaultForecastBaseURL = "https://api.weather.gov"

	// Fallback when no location could be extracted from the utterance and
	// WEATHER_DEFAULT_LOCATION is unset.
	fallbackLocation = "Rockford, MI 49341"

	weatherMaxRetries  = 2
	weatherBackoff     = 800 * time.Millisecond
	weatherCallTimeout = 15 * time.Second
)

// WeatherTool resolves a free-text location to coordinates via geocoding,
// then chains two forecast-service calls (point metadata, then the hourly
// forecast it names). READ_ONLY: it never touches retrieval or persistence.
//
// Both upstream base URLs are fields so tests can point the tool at a
// local httptest server.
type WeatherTool struct {
	httpClient      *http.Client
	geocodeBaseURL  string
	forecastBaseURL string
	defaultLocation string
}

// NewWeatherTool builds the weather tool with production endpoints. The
// default fallback location comes from WEATHER_DEFAULT_LOCATION when set.
func NewWeatherTool() *WeatherTool {
	loc := os.Getenv("WEATHER_DEFAULT_LOCATION")
	if loc == "" {
		loc = fallbackLocation
	}
	return &WeatherTool{
		httpClient:      &http.Client{Timeout: weatherCallTimeout},
		geocodeBaseURL:  defaultGeocodeBaseURL,
		forecastBaseURL: defaultForecastBaseURL,
		defaultLocation: loc,
	}
}

// Call implements Implementation.
//
// Args: optional "location" (free text) and "location_name" (display
// override). Missing location falls back to the configured default rather
// than failing, so a bare "weather" utterance still answers.
func (w *WeatherTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	location, _ := args["location"].(string)
	location = strings.TrimSpace(location)
	if location == "" {
		location = w.defaultLocation
	}
	displayName, _ := args["location_name"].(string)
	if strings.TrimSpace(displayName) == "" {
		displayName = location
	}

	lat, lon, resolvedName, err := w.geocode(ctx, location)
	if err != nil {
		return ErrorPayload(fmt.Sprintf("could not resolve location %q: %v", location, err),
			map[string]any{"location": displayName}), nil
	}
	if resolvedName != "" && displayName == location {
		displayName = resolvedName
	}

	forecastURL, err := w.pointForecastURL(ctx, lat, lon)
	if err != nil {
		return ErrorPayload(fmt.Sprintf("forecast metadata lookup failed: %v", err),
			map[string]any{"location": displayName}), nil
	}

	temp, unit, short, err := w.firstForecastPeriod(ctx, forecastURL)
	if err != nil {
		return ErrorPayload(fmt.Sprintf("forecast fetch failed: %v", err),
			map[string]any{"location": displayName}), nil
	}

	summary := fmt.Sprintf("%s: %s %s, %s.", displayName, temp, unit, short)
	return OKPayload(map[string]any{
		"location": displayName,
		"summary":  summary,
	}), nil
}

// geocode resolves free text to coordinates using the Nominatim search API.
func (w *WeatherTool) geocode(ctx context.Context, location string) (lat, lon, name string, err error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("format", "json")
	q.Set("limit", "1")
	endpoint := w.geocodeBaseURL + "/search?" + q.Encode()

	body, err := w.getWithRetry(ctx, endpoint)
	if err != nil {
		return "", "", "", err
	}
	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &hits); err != nil {
		return "", "", "", fmt.Errorf("bad geocoding response: %w", err)
	}
	if len(hits) == 0 {
		return "", "", "", fmt.Errorf("no geocoding match")
	}
	name = hits[0].DisplayName
	if idx := strings.Index(name, ","); idx > 0 {
		name = name[:idx]
	}
	return hits[0].Lat, hits[0].Lon, name, nil
}

// pointForecastURL maps coordinates to the forecast endpoint the service
// assigns to that grid point.
func (w *WeatherTool) pointForecastURL(ctx context.Context, lat, lon string) (string, error) {
	endpoint := fmt.Sprintf("%s/points/%s,%s", w.forecastBaseURL, lat, lon)
	body, err := w.getWithRetry(ctx, endpoint)
	if err != nil {
		return "", err
	}
	var point struct {
		Properties struct {
			Forecast string `json:"forecast"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &point); err != nil {
		return "", fmt.Errorf("bad point response: %w", err)
	}
	if point.Properties.Forecast == "" {
		return "", fmt.Errorf("point response missing forecast URL")
	}
	return point.Properties.Forecast, nil
}

// firstForecastPeriod fetches the forecast and returns the leading period.
func (w *WeatherTool) firstForecastPeriod(ctx context.Context, forecastURL string) (temp, unit, short string, err error) {
	body, err := w.getWithRetry(ctx, forecastURL)
	if err != nil {
		return "", "", "", err
	}
	var forecast struct {
		Properties struct {
			Periods []struct {
				Temperature     json.Number `json:"temperature"`
				TemperatureUnit string      `json:"temperatureUnit"`
				ShortForecast   string      `json:"shortForecast"`
			} `json:"periods"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &forecast); err != nil {
		return "", "", "", fmt.Errorf("bad forecast response: %w", err)
	}
	if len(forecast.Properties.Periods) == 0 {
		return "", "", "", fmt.Errorf("forecast has no periods")
	}
	p := forecast.Properties.Periods[0]
	return p.Temperature.String(), p.TemperatureUnit, p.ShortForecast, nil
}

// getWithRetry performs a GET with up to weatherMaxRetries retries on any
// failure, sleeping a fixed backoff between attempts. The last error is
// surfaced when every attempt fails.
func (w *WeatherTool) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= weatherMaxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("Retrying weather HTTP call",
				"endpoint", endpoint, "attempt", attempt, "last_error", lastErr)
			select {
			case <-time.After(weatherBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		body, err := w.getOnce(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (w *WeatherTool) getOnce(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	// Nominatim requires an identifying agent; weather.gov recommends one.
	req.Header.Set("User-Agent", "DelilahBrain/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
