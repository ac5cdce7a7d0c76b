package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileSinkReceivesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, err := New(&Config{Level: "info", Format: "console", Output: "stderr", File: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	child := l.With(String("run_id", "abc"))
	child.Info("metrics computed", Float("var", 0.0665), Int("n", 7), Error(errors.New("boom")))
	child.Debug("dropped below level")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), b)
	}
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["run_id"] != "abc" || got["message"] != "metrics computed" || got["error"] != "boom" {
		t.Fatalf("unexpected event %v", got)
	}
	if got["var"].(float64) != 0.0665 {
		t.Fatalf("unexpected var %v", got["var"])
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error("nothing", Time("at", time.Now()), Bool("ok", true), Any("x", []int{1}))
	if err := l.With(Strings("k", []string{"a", "b"})).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
