package tui

import (
	"fmt"
	"strings"

	"threadshelf/internal/interpret"
	"threadshelf/internal/model"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// viewerState is the open conversation. chat holds turns exchanged in this
// session only; they are never persisted.
type viewerState struct {
	conv    model.Conversation
	result  interpret.Result
	section interpret.Section
	chat    []model.Message
	vp      viewport.Model
}

func (v *viewerState) open(conv model.Conversation, cache *interpret.Cache) {
	v.conv = conv
	v.result = cache.Get(conv)
	v.section, _ = v.result.DefaultSection()
	v.chat = nil
	v.vp.GotoTop()
}

// cycle moves to the next (or previous) non-empty section, wrapping around.
func (v *viewerState) cycle(delta int) bool {
	sections := v.result.Sections()
	if len(sections) < 2 {
		return false
	}
	idx := 0
	for i, s := range sections {
		if s == v.section {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(sections)) % len(sections)
	v.section = sections[idx]
	v.vp.GotoTop()
	return true
}

func (v *viewerState) history() []model.Message {
	out := make([]model.Message, 0, len(v.result.Messages)+len(v.chat))
	out = append(out, v.result.Messages...)
	return append(out, v.chat...)
}

func (v *viewerState) render(width int, theme string) {
	if width < 10 {
		width = 10
	}
	var parts []string
	if v.result.Kind == interpret.KindStructured {
		parts = append(parts, RenderMarkdown(v.result.Markdown(v.section), width, theme))
	} else {
		// Opaque content is shown verbatim, not as Markdown.
		parts = append(parts, wrap.String(wordwrap.String(v.result.Raw, width), width))
	}
	if strings.TrimSpace(v.conv.Modifications) != "" {
		parts = append(parts, RenderMarkdown("## Note\n\n"+v.conv.Modifications, width, theme))
	}
	if len(v.chat) > 0 {
		var b strings.Builder
		b.WriteString("## Chat\n\n")
		for _, m := range v.chat {
			label := "**You:**"
			if m.Role == model.RoleModel {
				label = "**AI:**"
			}
			fmt.Fprintf(&b, "%s %s\n\n", label, m.Content)
		}
		parts = append(parts, RenderMarkdown(b.String(), width, theme))
	}
	v.vp.SetContent(strings.Join(parts, "\n\n"))
}

func (v viewerState) tabs(width int) string {
	if v.result.Kind != interpret.KindStructured {
		return styleMuted().Render("plain text")
	}
	sections := v.result.Sections()
	if len(sections) == 0 {
		return styleMuted().Render("structured export (no sections)")
	}
	rendered := make([]string, 0, len(sections))
	for _, s := range sections {
		label := fmt.Sprintf("%s %d", s, v.result.Count(s))
		if s == v.section {
			rendered = append(rendered, styleTabActive().Render(label))
		} else {
			rendered = append(rendered, styleTab().Render(label))
		}
	}
	return ansi.Truncate(lipgloss.JoinHorizontal(lipgloss.Top, rendered...), width, "…")
}
