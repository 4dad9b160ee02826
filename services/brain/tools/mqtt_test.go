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
	"strings"
	"testing"
)

func mqttArgs(topic string, extra map[string]any) map[string]any {
	args := map[string]any{"topic": topic, "payload": "hello"}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func TestMqttDeniedWhenMutationsDisabled(t *testing.T) {
	t.Setenv(envMutationsEnabled, "")
	t.Setenv(envTopicAllowlist, "delilah/")
	m := NewMqttTool()
	payload, err := m.Call(context.Background(), mqttArgs("delilah/test", nil))
	if err != nil {
		t.Fatalf("Call() err = %v, want nil (denial is semantic)", err)
	}
	if payload["ok"] != false {
		t.Errorf("payload ok = %v, want false", payload["ok"])
	}
	if msg, _ := payload["error"].(string); !strings.Contains(msg, "mutations disabled") {
		t.Errorf("error = %q, want mutations-disabled denial", msg)
	}
}

func TestMqttDeniedWhenAllowlistEmpty(t *testing.T) {
	t.Setenv(envMutationsEnabled, "true")
	t.Setenv(envTopicAllowlist, "")
	m := NewMqttTool()
	payload, _ := m.Call(context.Background(), mqttArgs("delilah/test", nil))
	if payload["ok"] != false {
		t.Fatalf("payload ok = %v, want false", payload["ok"])
	}
	if msg, _ := payload["error"].(string); !strings.Contains(msg, "allowlist") {
		t.Errorf("error = %q, want empty-allowlist denial", msg)
	}
}

func TestMqttDeniedWhenTopicOutsideAllowlist(t *testing.T) {
	t.Setenv(envMutationsEnabled, "true")
	t.Setenv(envTopicAllowlist, "delilah/,home/lights")
	m := NewMqttTool()
	payload, _ := m.Call(context.Background(), mqttArgs("secret/door", nil))
	if payload["ok"] != false {
		t.Fatalf("payload ok = %v, want false", payload["ok"])
	}
	if msg, _ := payload["error"].(string); !strings.Contains(msg, "not in allowlist") {
		t.Errorf("error = %q, want topic denial", msg)
	}
}

func TestMqttDryRunIsDefault(t *testing.T) {
	t.Setenv(envMutationsEnabled, "true")
	t.Setenv(envDryRunDefault, "")
	t.Setenv(envTopicAllowlist, "delilah/")
	published := false
	m := &MqttTool{publish: func(context.Context, string, string, byte, bool) error {
		published = true
		return nil
	}}
	payload, _ := m.Call(context.Background(), mqttArgs("delilah/test", nil))
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want dry-run success", payload)
	}
	if payload["dry_run"] != true {
		t.Errorf("dry_run = %v, want true by default", payload["dry_run"])
	}
	if published {
		t.Error("real publish happened during default dry-run")
	}
}

func TestMqttRealPublishRequiresExplicitOptOut(t *testing.T) {
	t.Setenv(envMutationsEnabled, "true")
	t.Setenv(envTopicAllowlist, "delilah/")
	var gotTopic, gotPayload string
	m := &MqttTool{publish: func(_ context.Context, topic, payload string, _ byte, _ bool) error {
		gotTopic, gotPayload = topic, payload
		return nil
	}}
	payload, _ := m.Call(context.Background(),
		mqttArgs("delilah/test", map[string]any{"dry_run": false}))
	if payload["ok"] != true {
		t.Fatalf("payload = %v, want success", payload)
	}
	if payload["dry_run"] != false {
		t.Errorf("dry_run = %v, want false", payload["dry_run"])
	}
	if gotTopic != "delilah/test" || gotPayload != "hello" {
		t.Errorf("published (%q, %q), want (delilah/test, hello)", gotTopic, gotPayload)
	}
}

func TestMqttPublishFailureIsSemantic(t *testing.T) {
	t.Setenv(envMutationsEnabled, "true")
	t.Setenv(envTopicAllowlist, "delilah/")
	m := &MqttTool{publish: func(context.Context, string, string, byte, bool) error {
		return context.DeadlineExceeded
	}}
	payload, err := m.Call(context.Background(),
		mqttArgs("delilah/test", map[string]any{"dry_run": false}))
	if err != nil {
		t.Fatalf("Call() err = %v, want nil", err)
	}
	if payload["ok"] != false {
		t.Errorf("payload ok = %v, want false on broker failure", payload["ok"])
	}
}
