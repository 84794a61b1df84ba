// Package interpret classifies uploaded conversation content as either a
// structured record (characters / inventory / crafting jobs / messages) or
// opaque text. Parsing is best-effort and never fails: anything not
// recognized is opaque.
package interpret

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"strings"

	"threadshelf/internal/model"
)

type Kind int

const (
	KindOpaque Kind = iota
	KindStructured
)

func (k Kind) String() string {
	if k == KindStructured {
		return "structured"
	}
	return "opaque"
}

type Section string

const (
	SectionCharacters Section = "characters"
	SectionInventory  Section = "inventory"
	SectionCrafting   Section = "crafting"
	SectionMessages   Section = "messages"
)

// SectionOrder is the fixed display order; the default section is the first non-empty one.
var SectionOrder = []Section{SectionCharacters, SectionInventory, SectionCrafting, SectionMessages}

func ParseSection(s string) (Section, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "craftingjobs" {
		s = string(SectionCrafting)
	}
	for _, sec := range SectionOrder {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

type Result struct {
	Kind Kind
	// Raw is the original content; for opaque results it is what gets displayed.
	Raw string

	Characters []model.Character
	Inventory  []model.InventoryEntry
	// CraftingJobs is the number of entries in craftingJobs; their shape is not interpreted.
	CraftingJobs int
	Messages     []model.Message
}

func (r Result) count(s Section) int {
	switch s {
	case SectionCharacters:
		return len(r.Characters)
	case SectionInventory:
		return len(r.Inventory)
	case SectionCrafting:
		return r.CraftingJobs
	case SectionMessages:
		return len(r.Messages)
	}
	return 0
}

// Count returns the number of entries in section s.
func (r Result) Count(s Section) int { return r.count(s) }

// Sections lists the non-empty sections in display order. Opaque results have none.
func (r Result) Sections() []Section {
	if r.Kind != KindStructured {
		return nil
	}
	var out []Section
	for _, s := range SectionOrder {
		if r.count(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// DefaultSection is the first non-empty section; ok is false when there is nothing to show.
func (r Result) DefaultSection() (Section, bool) {
	secs := r.Sections()
	if len(secs) == 0 {
		return "", false
	}
	return secs[0], true
}

func (r Result) HasSection(s Section) bool { return slices.Contains(r.Sections(), s) }

// recognizedKeys are the top-level fields that mark content as a structured
// record. craftingJobs alone does not.
var recognizedKeys = []string{"characters", "inventory", "messages"}

// Interpret classifies content. It never returns an error; unparseable or
// unrecognized content comes back as KindOpaque.
func Interpret(content string) Result {
	opaque := Result{Kind: KindOpaque, Raw: content}

	trimmed := bytes.TrimSpace([]byte(content))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return opaque
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return opaque
	}
	recognized := false
	for _, k := range recognizedKeys {
		if _, ok := top[k]; ok {
			recognized = true
			break
		}
	}
	if !recognized {
		return opaque
	}

	return Result{
		Kind:         KindStructured,
		Raw:          content,
		Characters:   parseCharacters(top["characters"]),
		Inventory:    parseInventory(top["inventory"]),
		CraftingJobs: countObject(top["craftingJobs"]),
		Messages:     parseMessages(top["messages"]),
	}
}

func parseCharacters(raw json.RawMessage) []model.Character {
	var items []map[string]json.RawMessage
	if !decodeArray(raw, &items) {
		return nil
	}
	out := make([]model.Character, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, model.Character{
			ID:      str(it["id"]),
			Name:    str(it["name"]),
			SubName: str(it["subName"]),
			Server:  str(it["server"]),
			Gold:    num(it["gold"]),
			SilverCoins: model.Counter{
				Current: num(it["silverCoins"]),
				Max:     num(it["silverCoinsMax"]),
			},
			FomorianTribute: model.Counter{
				Current: num(it["fomorianTribute"]),
				Max:     num(it["fomorianTributeMax"]),
			},
		})
	}
	return out
}

// parseInventory reads label -> quantity, where quantity is a number or an
// object of sub-counts that are summed. Entries come back sorted by label.
func parseInventory(raw json.RawMessage) []model.InventoryEntry {
	var items map[string]json.RawMessage
	if !decodeObject(raw, &items) {
		return nil
	}
	out := make([]model.InventoryEntry, 0, len(items))
	for label, q := range items {
		out = append(out, model.InventoryEntry{Label: label, Quantity: totalCount(q)})
	}
	slices.SortFunc(out, func(a, b model.InventoryEntry) int { return strings.Compare(a.Label, b.Label) })
	return out
}

// totalCount keeps fractional quantities as written.
func totalCount(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var sub map[string]json.RawMessage
	if !decodeObject(raw, &sub) {
		return 0
	}
	var sum float64
	for _, v := range sub {
		var n float64
		if err := json.Unmarshal(v, &n); err == nil {
			sum += n
		}
	}
	return sum
}

func countObject(raw json.RawMessage) int {
	var m map[string]json.RawMessage
	if !decodeObject(raw, &m) {
		return 0
	}
	return len(m)
}

func decodeArray(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func decodeObject(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func str(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// num rounds to the nearest integer, saturating outside the int64 range.
func num(raw json.RawMessage) int64 {
	var f float64
	if json.Unmarshal(raw, &f) != nil {
		return 0
	}
	switch f = math.Round(f); {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// parseMessages normalizes the message shapes seen in older exports. Text is
// the first present, non-null field of content, text, parts[0].text.
func parseMessages(raw json.RawMessage) []model.Message {
	var items []map[string]json.RawMessage
	if !decodeArray(raw, &items) {
		return nil
	}
	out := make([]model.Message, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, model.Message{
			Role:    model.Role(str(it["role"])),
			Content: messageText(it),
		})
	}
	return out
}

func messageText(m map[string]json.RawMessage) string {
	if v, ok := present(m["content"]); ok {
		return textOf(v)
	}
	if v, ok := present(m["text"]); ok {
		return textOf(v)
	}
	var parts []map[string]json.RawMessage
	if decodeArray(m["parts"], &parts) && len(parts) > 0 && parts[0] != nil {
		if v, ok := present(parts[0]["text"]); ok {
			return textOf(v)
		}
	}
	return ""
}

func present(raw json.RawMessage) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// textOf returns string values as-is and anything else as compact JSON.
func textOf(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var buf bytes.Buffer
	if json.Compact(&buf, raw) == nil {
		return buf.String()
	}
	return string(raw)
}
