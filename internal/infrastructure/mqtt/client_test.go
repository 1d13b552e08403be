package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/latchwork/latchwork-core/internal/infrastructure/config"
)

func disconnectedClient() *Client {
	return &Client{
		cfg:           config.MQTTConfig{QoS: 1},
		subscriptions: make(map[string]subscription),
	}
}

func TestPublish_Validation(t *testing.T) {
	c := disconnectedClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{name: "empty topic", topic: "", qos: 1, wantErr: ErrInvalidTopic},
		{name: "qos too high", topic: "t", qos: 3, wantErr: ErrInvalidQoS},
		{name: "oversized payload", topic: "t", payload: make([]byte, maxPayloadSize+1), qos: 1, wantErr: ErrPublishFailed},
		{name: "not connected", topic: "t", qos: 1, wantErr: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := disconnectedClient()
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("t", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(bad qos) error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("t", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("failed subscribes should not be tracked, count = %d", c.SubscriptionCount())
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := disconnectedClient()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestClose_NilClient(t *testing.T) {
	c := disconnectedClient()
	if err := c.Close(); err != nil {
		t.Errorf("Close() on never-connected client error = %v", err)
	}
}

func TestStatusPayload(t *testing.T) {
	online := statusPayload("latchwork-core", "online", "")
	if strings.Contains(online, "reason") {
		t.Errorf("online payload should not carry a reason: %s", online)
	}
	offline := statusPayload("latchwork-core", "offline", "graceful_shutdown")
	for _, want := range []string{`"status":"offline"`, `"reason":"graceful_shutdown"`, `"client_id":"latchwork-core"`} {
		if !strings.Contains(offline, want) {
			t.Errorf("offline payload missing %s: %s", want, offline)
		}
	}
}
