package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferedLogger(t *testing.T, buf *bytes.Buffer) Logger {
	t.Helper()
	l, err := New(Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func parseEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	return entry
}

func TestRedactSensitive_TokenValue(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(t, &buf)

	token := strings.Repeat("a3f9", 16)
	l.Info("token issued", "access_token", token)

	entry := parseEntry(t, &buf)
	got, ok := entry["access_token"].(string)
	if !ok {
		t.Fatal("expected access_token field in log")
	}

	if got == token {
		t.Errorf("token should be masked, got original value")
	}
	if got != "a3f9...a3f9" {
		t.Errorf("token mask format incorrect, got: %s", got)
	}
}

func TestRedactSensitive_TokenValueUnderAnyKey(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(t, &buf)

	// A 64-hex value is masked even when the key name looks harmless.
	token := strings.Repeat("0c", 32)
	l.Info("routing", "payload", token)

	entry := parseEntry(t, &buf)
	if got := entry["payload"].(string); got == token {
		t.Error("64-hex value should be masked regardless of key name")
	}
}

func TestRedactSensitive_APIKey(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(t, &buf)

	l.Info("auth check", "api_key", "example_valid_key")

	entry := parseEntry(t, &buf)
	if got := entry["api_key"].(string); got != redactedValue {
		t.Errorf("api_key = %q, want %q", got, redactedValue)
	}
}

func TestRedactSensitive_PlainFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(t, &buf)

	l.Info("ask received", "question", "ping", "conn_id", "agcn-01hgw2n5x8y9z0a1b2c3d4e5f6")

	entry := parseEntry(t, &buf)
	if got := entry["question"].(string); got != "ping" {
		t.Errorf("question = %q, want unredacted value", got)
	}
	if got := entry["conn_id"].(string); got != "agcn-01hgw2n5x8y9z0a1b2c3d4e5f6" {
		t.Errorf("conn_id = %q, want unredacted value", got)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(t, &buf)

	SetLevel("error")
	defer SetLevel("info")

	l.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("info log emitted at error level: %s", buf.String())
	}

	if got := GetLevel(); got != "error" {
		t.Errorf("GetLevel() = %q, want error", got)
	}
}
