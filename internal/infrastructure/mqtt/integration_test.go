//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// These tests need a broker at 127.0.0.1:1883:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestIntegration_ConnectAndHealth(t *testing.T) {
	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_CommandRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "ocppgw-int-commands"
	cfg.TopicPrefix = "ocppgw-int"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	results := make(chan []byte, 1)
	if err := client.Subscribe(client.Topics().CommandResult("CP001"), 1, func(_ string, payload []byte) error {
		results <- payload
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	bridge := NewCommandBridge(client, client, cfg.TopicPrefix, 1,
		func(context.Context, string, string, json.RawMessage) any {
			return map[string]string{"status": "Offline"}
		})
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := client.Publish(client.Topics().Command("CP001"), []byte(`{"command":"Reset"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case payload := <-results:
		var resp CommandResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			t.Fatalf("decoding result: %v", err)
		}
		if resp.Command != "Reset" {
			t.Errorf("result = %s", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no command result received")
	}
}
