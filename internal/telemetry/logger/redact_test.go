package logger

import (
	"errors"
	"log/slog"
	"testing"
)

const testToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw0"

func TestRedactString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare token", testToken, "123456789:AAH...aw0"},
		{"embedded token", "bot_data[token]=" + testToken + " end", "bot_data[token]=123456789:AAH...aw0 end"},
		{"two tokens", testToken + "," + testToken, "123456789:AAH...aw0,123456789:AAH...aw0"},
		{"short secret", "123456789:short", "123456789:short"},
		{"no colon", "bot_instance_replaced_by_ptb_persistence", "bot_instance_replaced_by_ptb_persistence"},
		{"time of day", "12:30", "12:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactSensitive_TokenValue(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Info("value", "data", "token is "+testToken)

	entry := decodeEntry(t, buf)
	if entry["data"] != "token is 123456789:AAH...aw0" {
		t.Errorf("data = %v", entry["data"])
	}
}

func TestRedactSensitive_Error(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Error("failed", "error", errors.New("bad value "+testToken))

	entry := decodeEntry(t, buf)
	if entry["error"] != "bad value 123456789:AAH...aw0" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestRedactSensitive_Key(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		redacted bool
	}{
		{"password", "hunter2", true},
		{"bot_token", "anything", true},
		{"Authorization", "Bearer x", true},
		{"path", "/data/bot", false},
		{"secret", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			l, buf := newJSONLogger(t, "info")
			l.Info("attr", tt.key, tt.value)

			entry := decodeEntry(t, buf)
			got := entry[tt.key]
			if tt.redacted && got != redactedValue {
				t.Errorf("%s = %v, want redacted", tt.key, got)
			}
			if !tt.redacted && got != tt.value {
				t.Errorf("%s = %v, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Info("grouped", slog.Group("file", slog.String("data", testToken)))

	entry := decodeEntry(t, buf)
	group, ok := entry["file"].(map[string]any)
	if !ok {
		t.Fatalf("file = %v, want group", entry["file"])
	}
	if group["data"] != "123456789:AAH...aw0" {
		t.Errorf("file.data = %v", group["data"])
	}
}

func TestIsSensitive(t *testing.T) {
	if !IsSensitiveKey("API_TOKEN") {
		t.Error("IsSensitiveKey(API_TOKEN) = false")
	}
	if IsSensitiveKey("category") {
		t.Error("IsSensitiveKey(category) = true")
	}
	if !IsSensitiveValue("x " + testToken) {
		t.Error("IsSensitiveValue(token) = false")
	}
	if IsSensitiveValue("pmrun-01j") {
		t.Error("IsSensitiveValue(run id) = true")
	}
}
