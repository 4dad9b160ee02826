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
	"log/slog"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTT safety gates. Read from the environment on EVERY call, never cached,
// so flipping a flag takes effect on the next request without a restart.
const (
	envMutationsEnabled = "BRAIN_MUTATIONS_ENABLED"
	envDryRunDefault    = "BRAIN_MQTT_DRY_RUN_DEFAULT"
	envTopicAllowlist   = "BRAIN_MQTT_TOPIC_ALLOWLIST"
	envBrokerURL        = "MQTT_BROKER_URL"
)

const mqttPublishTimeout = 5 * time.Second

// publishFunc performs one real broker publish. Swappable for tests.
type publishFunc func(ctx context.Context, topic, payload string, qos byte, retain bool) error

// MqttTool implements mqtt.publish, the only MUTATING tool. Three
// independent gates must all pass before a real publish happens:
//
//  1. BRAIN_MUTATIONS_ENABLED must be explicitly true (default OFF).
//  2. The topic must match a prefix in BRAIN_MQTT_TOPIC_ALLOWLIST
//     (empty allowlist denies everything).
//  3. Dry-run is the default even with mutations enabled; a request must
//     pass dry_run=false to opt out.
//
// Publishing must never happen by accident of routing.
type MqttTool struct {
	publish publishFunc
}

// NewMqttTool builds the tool with the real broker publisher.
func NewMqttTool() *MqttTool {
	return &MqttTool{publish: brokerPublish}
}

// Call implements Implementation. Gate denials are semantic failures
// (ok=false payloads), deterministic for identical configuration.
func (m *MqttTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	topic, _ := args["topic"].(string)
	payload, _ := args["payload"].(string)
	qos := argByte(args, "qos", 0)
	retain := argBool(args, "retain", false)

	if !envFlag(envMutationsEnabled, false) {
		return ErrorPayload(
			fmt.Sprintf("mqtt.publish denied: mutations disabled (set %s=true)", envMutationsEnabled),
			map[string]any{"topic": topic}), nil
	}

	allowlist := topicAllowlist()
	if len(allowlist) == 0 {
		return ErrorPayload(
			fmt.Sprintf("mqtt.publish denied: empty topic allowlist (set %s)", envTopicAllowlist),
			map[string]any{"topic": topic}), nil
	}
	if !topicAllowed(topic, allowlist) {
		return ErrorPayload(
			fmt.Sprintf("mqtt.publish denied: topic %q not in allowlist", topic),
			map[string]any{"topic": topic, "allowlist": allowlist}), nil
	}

	dryRun := envFlag(envDryRunDefault, true)
	if raw, present := args["dry_run"]; present {
		if b, ok := raw.(bool); ok {
			dryRun = b
		}
	}
	if dryRun {
		slog.Info("MQTT publish dry-run", "topic", topic, "qos", qos, "retain", retain)
		return OKPayload(map[string]any{
			"dry_run": true,
			"topic":   topic,
			"summary": fmt.Sprintf("dry-run: would publish to %s", topic),
		}), nil
	}

	if err := m.publish(ctx, topic, payload, qos, retain); err != nil {
		return ErrorPayload(fmt.Sprintf("mqtt publish failed: %v", err),
			map[string]any{"topic": topic}), nil
	}
	slog.Info("MQTT publish delivered", "topic", topic, "qos", qos, "retain", retain)
	return OKPayload(map[string]any{
		"dry_run": false,
		"topic":   topic,
		"summary": fmt.Sprintf("published to %s", topic),
	}), nil
}

// brokerPublish connects, publishes once, and disconnects. A persistent
// connection is not worth the state for the rare gated publish.
func brokerPublish(ctx context.Context, topic, payload string, qos byte, retain bool) error {
	broker := os.Getenv(envBrokerURL)
	if broker == "" {
		broker = "tcp://localhost:1883"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("delilah-brain-" + uuid.NewString()[:8]).
		SetConnectTimeout(mqttPublishTimeout)
	client := mqtt.NewClient(opts)

	if token := client.Connect(); !token.WaitTimeout(mqttPublishTimeout) || token.Error() != nil {
		if token.Error() != nil {
			return fmt.Errorf("broker connect failed: %w", token.Error())
		}
		return fmt.Errorf("broker connect timed out after %s", mqttPublishTimeout)
	}
	defer client.Disconnect(250)

	token := client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("publish timed out after %s", mqttPublishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish failed: %w", token.Error())
	}
	return nil
}

// topicAllowlist parses the comma-separated prefix list fresh from the
// environment.
func topicAllowlist() []string {
	raw := os.Getenv(envTopicAllowlist)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func topicAllowed(topic string, allowlist []string) bool {
	for _, prefix := range allowlist {
		if strings.HasPrefix(topic, prefix) {
			return true
		}
	}
	return false
}

func envFlag(name string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch raw {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func argBool(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

func argByte(args map[string]any, key string, def byte) byte {
	switch v := args[key].(type) {
	case int:
		if v >= 0 && v <= 2 {
			return byte(v)
		}
	case float64:
		if v >= 0 && v <= 2 {
			return byte(v)
		}
	}
	return def
}
