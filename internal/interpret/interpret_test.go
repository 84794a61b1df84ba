package interpret

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadshelf/internal/model"
)

func TestInterpret_CharactersOnly(t *testing.T) {
	t.Parallel()

	r := Interpret(`{"characters":[{"id":"c1","name":"Foo","gold":100,"silverCoins":3,"silverCoinsMax":10}]}`)
	require.Equal(t, KindStructured, r.Kind)
	assert.Equal(t, []Section{SectionCharacters}, r.Sections())

	def, ok := r.DefaultSection()
	require.True(t, ok)
	assert.Equal(t, SectionCharacters, def)

	require.Len(t, r.Characters, 1)
	c := r.Characters[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "Foo", c.Name)
	assert.EqualValues(t, 100, c.Gold)
	assert.Equal(t, "3 / 10", c.SilverCoins.String())
	assert.Equal(t, "0 / 0", c.FomorianTribute.String())
}

func TestInterpret_Opaque(t *testing.T) {
	t.Parallel()

	cases := []string{
		"just some text",
		`"just some text"`,
		"",
		"[1,2,3]",
		`{"title":"no recognized keys"}`,
		`{"craftingJobs":{"a":1}}`,
		`{"characters":[`,
	}
	for _, in := range cases {
		r := Interpret(in)
		assert.Equal(t, KindOpaque, r.Kind, "input %q", in)
		assert.Equal(t, in, r.Raw)
		assert.Empty(t, r.Sections())
	}
}

func TestInterpret_StructuredButEmpty(t *testing.T) {
	t.Parallel()

	r := Interpret(`{"characters":[],"inventory":{},"messages":null}`)
	require.Equal(t, KindStructured, r.Kind)
	_, ok := r.DefaultSection()
	assert.False(t, ok)
	assert.Contains(t, r.Markdown(SectionCharacters), "nothing to display")
}

func TestInterpret_SectionOrder(t *testing.T) {
	t.Parallel()

	r := Interpret(`{
		"messages":[{"role":"user","content":"hi"}],
		"craftingJobs":{"j1":{},"j2":{}},
		"inventory":{"ore":4}
	}`)
	require.Equal(t, KindStructured, r.Kind)
	assert.Equal(t, []Section{SectionInventory, SectionCrafting, SectionMessages}, r.Sections())
	def, _ := r.DefaultSection()
	assert.Equal(t, SectionInventory, def)
	assert.Equal(t, 2, r.CraftingJobs)
}

func TestInterpret_InventoryQuantities(t *testing.T) {
	t.Parallel()

	r := Interpret(`{"inventory":{
		"wood":12,
		"iron ore":{"bag":3,"bank":7,"note":"x"},
		"gem":{"bag":"n/a"},
		"salt":1.5,
		"rope":{"bag":0.25,"bank":1}
	}}`)
	require.Equal(t, KindStructured, r.Kind)
	assert.Equal(t, []model.InventoryEntry{
		{Label: "gem", Quantity: 0},
		{Label: "iron ore", Quantity: 10},
		{Label: "rope", Quantity: 1.25},
		{Label: "salt", Quantity: 1.5},
		{Label: "wood", Quantity: 12},
	}, r.Inventory)

	md := r.Markdown(SectionInventory)
	assert.Contains(t, md, "| salt | 1.5 |")
	assert.Contains(t, md, "| wood | 12 |")
}

func TestInterpret_HugeNumbersSaturate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(math.MaxInt64), num(json.RawMessage(`1e300`)))
	assert.Equal(t, int64(math.MinInt64), num(json.RawMessage(`-1e300`)))
	assert.Equal(t, int64(3), num(json.RawMessage(`2.6`)))
}

func TestInterpret_MessageTextPrecedence(t *testing.T) {
	t.Parallel()

	r := Interpret(`{"messages":[
		{"role":"user","content":"from content","text":"ignored","parts":[{"text":"ignored"}]},
		{"role":"model","text":"from text","parts":[{"text":"ignored"}]},
		{"role":"user","parts":[{"text":"from parts"},{"text":"second"}]},
		{"role":"model","content":null,"text":"null content falls through"},
		{"role":"user"},
		{"role":"model","parts":[]},
		{"role":"user","content":{"k":1}}
	]}`)
	require.Equal(t, KindStructured, r.Kind)
	require.Len(t, r.Messages, 7)

	want := []string{
		"from content",
		"from text",
		"from parts",
		"null content falls through",
		"",
		"",
		`{"k":1}`,
	}
	for i, w := range want {
		assert.Equal(t, w, r.Messages[i].Content, "message %d", i)
	}
	assert.Equal(t, model.RoleUser, r.Messages[0].Role)
	assert.Equal(t, model.RoleModel, r.Messages[1].Role)
}

func TestInterpret_ToleratesWrongShapes(t *testing.T) {
	t.Parallel()

	r := Interpret(`{"characters":"oops","inventory":[1,2],"messages":[{"role":"user","content":"ok"}]}`)
	require.Equal(t, KindStructured, r.Kind)
	assert.Empty(t, r.Characters)
	assert.Empty(t, r.Inventory)
	assert.Equal(t, []Section{SectionMessages}, r.Sections())
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	r := Interpret(`{
		"characters":[{"id":"c1","name":"Foo","server":"Nuadha","gold":1234567}],
		"inventory":{"a|b":2},
		"messages":[{"role":"user","content":"hello"},{"role":"model","text":"hi there"}]
	}`)

	chars := r.Markdown(SectionCharacters)
	assert.Contains(t, chars, "### Foo")
	assert.Contains(t, chars, "Gold: 1,234,567")
	assert.Contains(t, chars, "Server: Nuadha")

	inv := r.Markdown(SectionInventory)
	assert.Contains(t, inv, `| a\|b | 2 |`)

	msgs := r.Markdown(SectionMessages)
	assert.Less(t, strings.Index(msgs, "hello"), strings.Index(msgs, "hi there"))

	opaque := Interpret("plain words").Markdown(SectionMessages)
	assert.Contains(t, opaque, "plain words")
	assert.True(t, strings.HasPrefix(opaque, "```"))
}

func TestParseSection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Section
		ok   bool
	}{
		{"characters", SectionCharacters, true},
		{" Inventory ", SectionInventory, true},
		{"craftingJobs", SectionCrafting, true},
		{"messages", SectionMessages, true},
		{"notes", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSection(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCache(t *testing.T) {
	t.Parallel()

	c := NewCache(2)
	conv := model.Conversation{ID: "conv-1", Content: `{"messages":[{"role":"user","content":"a"}]}`}

	first := c.Get(conv)
	require.Equal(t, KindStructured, first.Kind)
	assert.Equal(t, 1, c.Len())

	c.Get(conv)
	assert.Equal(t, 1, c.Len())

	changed := conv
	changed.Content = "now plain"
	assert.Equal(t, KindOpaque, c.Get(changed).Kind)
	assert.Equal(t, 2, c.Len())

	c.Get(model.Conversation{ID: "conv-2", Content: "x"})
	assert.Equal(t, 2, c.Len())
}
