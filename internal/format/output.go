package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

// Texter is implemented by payloads that have a human-readable rendering.
type Texter interface {
	Text(now time.Time) string
}

// Write writes output in the requested format. Text renderings compute
// relative times against now.
//
// Supported formats:
// - json (default)
// - text (payloads implementing Texter; anything else falls back to indented JSON)
func Write(w io.Writer, v any, format string, pretty bool, now time.Time) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "text":
		if t, ok := v.(Texter); ok {
			return WriteText(w, t, now)
		}
		return WriteJSON(w, v, true)
	default:
		return fmt.Errorf("unknown format: %s (expected json|text)", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

func WriteText(w io.Writer, t Texter, now time.Time) error {
	s := t.Text(now)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

// Ago renders t relative to now ("3 hours ago"). Zero times render as "never".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func Count(n int64) string { return humanize.Comma(n) }

func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Table renders rows under headers with no borders. Empty tables render "(none)".
func Table(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return "(none)\n"
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(_, _ int) lipgloss.Style { return lipgloss.NewStyle().PaddingRight(2) }).
		Headers(headers...).
		Rows(rows...)
	return t.String() + "\n"
}
