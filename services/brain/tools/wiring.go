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

// NewDefaultExecutor wires the registry to the production tool bodies.
// Called once at process startup; the result is safe for concurrent use.
func NewDefaultExecutor() *Executor {
	system := NewSystemTool()
	impls := map[string]Implementation{
		"weather":                 NewWeatherTool(),
		"system.health_check":     ImplementationFunc(system.HealthCheck),
		"system.get_versions":     ImplementationFunc(system.GetVersions),
		"system.snapshot_capture": ImplementationFunc(system.SnapshotCapture),
		"mqtt.publish":            NewMqttTool(),
	}
	return NewExecutor(NewRegistry(), impls)
}
