package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{"json", "json", `"msg":"hello"`},
		{"text", "text", "msg=hello"},
		{"console alias", "console", "msg=hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: tt.format, Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			l.Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q lacks %q", buf.String(), tt.want)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	defer SetLevel("info")

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}

	SetLevel("debug")
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q", GetLevel())
	}
	l.Debug("visible")
	// The slog view shares the level.
	l.Slog().Debug("also visible")

	if n := len(decodeLines(t, &buf)); n != 2 {
		t.Errorf("logged %d lines after SetLevel(debug), want 2", n)
	}
}

func TestLogger_WithAndContext(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "01HZX")
	l.With("component", "router").WithContext(ctx).Info("dispatched")
	l.Slog().InfoContext(ctx, "via slog")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0]["component"] != "router" || lines[0]["request_id"] != "01HZX" {
		t.Errorf("first line = %v", lines[0])
	}
	if lines[1]["request_id"] != "01HZX" {
		t.Errorf("slog line lacks request id: %v", lines[1])
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("unexpected request id")
	}
}
