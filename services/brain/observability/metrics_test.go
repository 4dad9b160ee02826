// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitMetricsIdempotent(t *testing.T) {
	first := InitMetrics()
	second := InitMetrics()
	if first == nil || first != second {
		t.Fatal("InitMetrics must return the same instance on every call")
	}
}

func TestTurnCounter(t *testing.T) {
	m := InitMetrics()
	before := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("tool"))
	m.TurnsTotal.WithLabelValues("tool").Inc()
	after := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("tool"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}
