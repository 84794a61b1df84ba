package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalAddThread
	modalRenameThread
	modalUpload
	modalExport
	modalConfirmDeleteThread
	modalConfirmDeleteConv
	modalEditNote
	modalChat
)

type confirmFocus int

const (
	confirmFocusCancel confirmFocus = iota
	confirmFocusConfirm
)

func modalBodyWidth(width int) int {
	w := width - 12
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

func renderModalBox(width int, title string, content string) string {
	bodyW := modalBodyWidth(width)
	head := lipgloss.NewStyle().Bold(true).Width(bodyW).Render(title)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Background(colorSurfaceBg).
		Foreground(colorSurfaceFg).
		Padding(1, 2)
	return box.Render(head + "\n\n" + content)
}

func renderConfirmModal(width int, title string, body string, confirmLabel string, focus confirmFocus) string {
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render("Cancel")
	if focus == confirmFocusConfirm {
		confirm = btnActive.Render(confirmLabel)
	} else {
		cancel = btnActive.Render("Cancel")
	}
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, " ", cancel)

	bodyW := modalBodyWidth(width)
	help := styleMuted().Width(bodyW).Render("tab: focus   enter: select   y: confirm   esc: cancel")
	wrapped := lipgloss.NewStyle().Width(bodyW).Render(body)

	return renderModalBox(width, title, strings.Join([]string{wrapped, "", controls, "", help}, "\n"))
}

func renderInputModal(width int, title string, input string, help string) string {
	bodyW := modalBodyWidth(width)
	return renderModalBox(width, title, input+"\n\n"+styleMuted().Width(bodyW).Render(help))
}
