package tui

import (
	"strings"
	"testing"
)

func TestRenderMarkdownNoTTY(t *testing.T) {
	out := RenderMarkdown("# Inventory\n\nwood and **iron**", 40, "notty")
	if !strings.Contains(out, "Inventory") || !strings.Contains(out, "iron") {
		t.Fatalf("unexpected render:\n%s", out)
	}

	mdRendererMu.Lock()
	_, cached := mdRenderers["notty:40"]
	mdRendererMu.Unlock()
	if !cached {
		t.Fatalf("expected renderer cached by style and width")
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if got := RenderMarkdown("  \n ", 80, "dark"); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestMarkdownStyle(t *testing.T) {
	for in, want := range map[string]string{"light": "light", " Dark ": "dark", "notty": "notty"} {
		if got := markdownStyle(in); got != want {
			t.Fatalf("markdownStyle(%q) = %q, want %q", in, got, want)
		}
	}
}
