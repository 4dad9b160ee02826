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
	"fmt"
	"sort"
	"strings"
)

// Registry is the static tool allowlist. Populated once at startup and
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds the process-wide registry with the five supported
// tools. The table is the single source of truth for names, risk levels,
// and argument shapes.
func NewRegistry() *Registry {
	specs := []Spec{
		{
			Name:         "weather",
			RiskLevel:    RiskReadOnly,
			OptionalArgs: []string{"location", "location_name"},
		},
		{
			Name:      "system.health_check",
			RiskLevel: RiskReadOnly,
		},
		{
			Name:      "system.get_versions",
			RiskLevel: RiskReadOnly,
		},
		{
			Name:         "system.snapshot_capture",
			RiskLevel:    RiskReadOnly,
			OptionalArgs: []string{"label"},
		},
		{
			Name:         "mqtt.publish",
			RiskLevel:    RiskMutating,
			RequiredArgs: []string{"topic", "payload"},
			OptionalArgs: []string{"qos", "retain", "dry_run"},
		},
	}
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		m[s.Name] = s
	}
	return &Registry{specs: m}
}

// IsAllowed reports whether name is a registered tool.
func (r *Registry) IsAllowed(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// GetSpec returns the spec for name, with ok=false for unknown tools.
func (r *Registry) GetSpec(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// ValidateArgs checks args against the spec for name.
//
// # Outputs
//
//   - warning: non-empty when args carry keys outside the declared shape.
//     Execution proceeds; the warning is recorded in the result audit.
//   - err: non-nil when a required arg is missing or the tool is unknown.
//     Callers must treat this as a hard failure.
func (r *Registry) ValidateArgs(name string, args map[string]any) (string, error) {
	spec, ok := r.specs[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	var missing []string
	for _, req := range spec.RequiredArgs {
		if _, present := args[req]; !present {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("tool %s missing required args: %s",
			name, strings.Join(missing, ", "))
	}

	known := make(map[string]bool, len(spec.RequiredArgs)+len(spec.OptionalArgs))
	for _, a := range spec.RequiredArgs {
		known[a] = true
	}
	for _, a := range spec.OptionalArgs {
		known[a] = true
	}
	var unexpected []string
	for k := range args {
		if !known[k] {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Sprintf("unexpected args for %s: %s",
			name, strings.Join(unexpected, ", ")), nil
	}
	return "", nil
}
