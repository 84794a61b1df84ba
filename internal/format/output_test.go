package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type textPayload struct {
	Name string `json:"name"`
}

func (p textPayload) Text(now time.Time) string { return "name: " + p.Name }

type agePayload struct{ At time.Time }

func (p agePayload) Text(now time.Time) string { return "updated " + Ago(p.At, now) }

func TestWrite_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": 1}, "", false, time.Time{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "{\"data\":1}\n" {
		t.Fatalf("got %q", got)
	}

	buf.Reset()
	if err := Write(&buf, map[string]any{"data": 1}, "json", true, time.Time{}); err != nil {
		t.Fatalf("Write pretty: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"data\": 1") {
		t.Fatalf("expected indented JSON, got %q", buf.String())
	}
}

func TestWrite_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, textPayload{Name: "x"}, "text", false, time.Time{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "name: x\n" {
		t.Fatalf("got %q", buf.String())
	}

	buf.Reset()
	if err := Write(&buf, map[string]int{"n": 2}, "text", false, time.Time{}); err != nil {
		t.Fatalf("Write fallback: %v", err)
	}
	var m map[string]int
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil || m["n"] != 2 {
		t.Fatalf("expected JSON fallback, got %q (%v)", buf.String(), err)
	}
}

func TestWrite_TextUsesGivenNow(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	if err := Write(&buf, agePayload{At: at}, "text", false, at.Add(3*time.Hour)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "updated 3 hours ago\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	if err := Write(&bytes.Buffer{}, 1, "edn", false, time.Time{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHumanHelpers(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := Ago(now.Add(-3*time.Hour), now); got != "3 hours ago" {
		t.Fatalf("Ago: %q", got)
	}
	if got := Ago(time.Time{}, now); got != "never" {
		t.Fatalf("Ago zero: %q", got)
	}
	if got := Count(1234567); got != "1,234,567" {
		t.Fatalf("Count: %q", got)
	}
	if got := Table([]string{"ID"}, nil); got != "(none)\n" {
		t.Fatalf("empty table: %q", got)
	}
	tbl := Table([]string{"ID", "TITLE"}, [][]string{{"thread-1", "Alpha"}})
	if !strings.Contains(tbl, "thread-1") || !strings.Contains(tbl, "Alpha") || !strings.Contains(tbl, "TITLE") {
		t.Fatalf("table: %q", tbl)
	}
}
