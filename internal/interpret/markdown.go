package interpret

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"threadshelf/internal/model"
)

// Markdown renders one section for display. Opaque results render their raw
// text in a fenced block regardless of section; an empty structured result
// renders a placeholder line.
func (r Result) Markdown(section Section) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	if r.Kind != KindStructured {
		writeLn("```")
		writeLn(strings.TrimRight(r.Raw, "\n"))
		writeLn("```")
		return buf.String()
	}
	if _, ok := r.DefaultSection(); !ok {
		writeLn("_nothing to display_")
		return buf.String()
	}

	switch section {
	case SectionCharacters:
		for _, c := range r.Characters {
			writeCharacter(writeLn, c)
		}
	case SectionInventory:
		writeLn("| Item | Quantity |")
		writeLn("|---|---:|")
		for _, e := range r.Inventory {
			writeLn("| " + escapeCell(e.Label) + " | " + humanize.Commaf(e.Quantity) + " |")
		}
	case SectionCrafting:
		writeLn(fmt.Sprintf("%d crafting job(s) recorded.", r.CraftingJobs))
	case SectionMessages:
		for _, m := range r.Messages {
			writeLn("**" + roleLabel(m.Role) + "**")
			writeLn("")
			if strings.TrimSpace(m.Content) == "" {
				writeLn("_(empty)_")
			} else {
				writeLn(m.Content)
			}
			writeLn("")
		}
	default:
		writeLn("_nothing to display_")
	}
	return buf.String()
}

func writeCharacter(writeLn func(string), c model.Character) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = c.ID
	}
	writeLn("### " + name)
	writeLn("")
	if s := strings.TrimSpace(c.SubName); s != "" {
		writeLn("- Sub name: " + s)
	}
	if s := strings.TrimSpace(c.Server); s != "" {
		writeLn("- Server: " + s)
	}
	writeLn("- Gold: " + humanize.Comma(c.Gold))
	writeLn("- Silver coins: " + c.SilverCoins.String())
	writeLn("- Fomorian tribute: " + c.FomorianTribute.String())
	writeLn("")
}

func roleLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return "You"
	case model.RoleModel:
		return "AI"
	}
	if r == "" {
		return "unknown"
	}
	return string(r)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
