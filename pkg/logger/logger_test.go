package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	return New(Options{
		ServiceName: "test",
		Level:       zerolog.DebugLevel,
		Output:      buf,
	})
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var payload map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &payload); err != nil {
		t.Fatalf("log line is not valid json: %v", err)
	}
	return payload
}

func TestInfoIncludesServiceName(t *testing.T) {
	var buf bytes.Buffer
	logg := newTestLogger(&buf)

	logg.Info(context.Background(), "hello")

	payload := lastLine(t, &buf)
	if payload["service"] != "test" {
		t.Fatalf("expected service field, got %v", payload["service"])
	}
	if payload["message"] != "hello" {
		t.Fatalf("expected message field, got %v", payload["message"])
	}
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := newTestLogger(&buf)

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithUserID(ctx, "user-9")
	logg.Info(ctx, "with fields")

	payload := lastLine(t, &buf)
	if payload["request_id"] != "req-123" {
		t.Fatalf("expected request_id, got %v", payload["request_id"])
	}
	if payload["user_id"] != "user-9" {
		t.Fatalf("expected user_id, got %v", payload["user_id"])
	}
}

func TestChildContextDoesNotLeakToParent(t *testing.T) {
	var buf bytes.Buffer
	logg := newTestLogger(&buf)

	parent := context.Background()
	_ = logg.WithOrderID(parent, "ord-1")
	logg.Info(parent, "plain")

	payload := lastLine(t, &buf)
	if _, ok := payload["order_id"]; ok {
		t.Fatalf("order_id leaked into parent context log: %v", payload)
	}
}

func TestErrorAttachesStackAndError(t *testing.T) {
	var buf bytes.Buffer
	logg := newTestLogger(&buf)

	logg.Error(context.Background(), "it broke", context.Canceled)

	payload := lastLine(t, &buf)
	if payload["error"] != context.Canceled.Error() {
		t.Fatalf("expected error field, got %v", payload["error"])
	}
	if stack, ok := payload["stack"].(string); !ok || stack == "" {
		t.Fatalf("expected stack trace to be attached")
	}
}
