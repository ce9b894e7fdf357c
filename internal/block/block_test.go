package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_JSONShape(t *testing.T) {
	b := Block{Name: "disk_space", Instance: "/", FullText: " / 12 GiB ", Separator: false}

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"disk_space","instance":"/","full_text":" / 12 GiB ","separator":false}`, string(out))

	b.Color = "#FF0000"
	out, err = json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"disk_space","instance":"/","full_text":" / 12 GiB ","separator":false,"color":"#FF0000"}`, string(out))
}

func TestBlock_Validate(t *testing.T) {
	tests := []struct {
		name    string
		block   Block
		wantErr bool
	}{
		{"valid", Block{Name: "load", Instance: "load", FullText: "0.1"}, false},
		{"valid with color", Block{Name: "load", FullText: "0.1", Color: "#00ff00"}, false},
		{"missing name", Block{Instance: "x", FullText: "0.1"}, true},
		{"missing text", Block{Name: "load"}, true},
		{"bad color", Block{Name: "load", FullText: "x", Color: "red"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.block.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBlock_Sanitize(t *testing.T) {
	b := Block{Name: "output_text", Instance: "cmd", FullText: "ok\xff"}.Sanitize()
	assert.Equal(t, "ok�", b.FullText)
	assert.NoError(t, b.Validate())

	empty := Block{Name: "output_text", Instance: "cmd"}.Sanitize()
	assert.Equal(t, " ", empty.FullText)
}

func TestError(t *testing.T) {
	b := Error("disk_space", "home", true, DefaultBad)

	assert.Equal(t, "disk_space", b.Name)
	assert.Equal(t, "home", b.Instance)
	assert.Equal(t, " home: ERROR ", b.FullText)
	assert.True(t, b.Separator)
	assert.Equal(t, DefaultBad, b.Color)
	assert.True(t, b.IsError())
	assert.False(t, Block{Name: "x", FullText: "fine"}.IsError())
}

func TestFormat(t *testing.T) {
	fields := map[string]string{"free": "12 GiB", "mount": "/home"}

	tests := []struct {
		name     string
		template string
		primary  string
		want     string
	}{
		{"positional", " LOAD: {} ", "0.10 0.20 0.30", " LOAD: 0.10 0.20 0.30 "},
		{"named", " {mount}: {free} ", "", " /home: 12 GiB "},
		{"unknown field renders empty", "[{nope}]", "", "[]"},
		{"escaped braces", "{{literal}} {}", "x", "{literal} x"},
		{"unterminated", "free {free", "", "free {free"},
		{"spaces in key", "{ free }", "", "12 GiB"},
		{"lone closing brace", "a}b", "", "a}b"},
		{"utf8 passthrough", " ♫ {}% ", "40", " ♫ 40% "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.primary, fields))
		})
	}
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"#ff0000", "#FF0000", false},
		{"#FF0000", "#FF0000", false},
		{"00ff00", "#00FF00", false},
		{"#fff", "#FFFFFF", false},
		{"abc", "#AABBCC", false},
		{"red", "#FF0000", false},
		{"Cyan", "#00FFFF", false},
		{"dark slate gray", "#2F4F4F", false},
		{"#12345", "", true},
		{"#gggggg", "", true},
		{"#1234567", "", true},
		{"notacolor", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPalette_Resolve(t *testing.T) {
	p := Palette{Good: "lime", Degraded: "#ff0", Bad: "#CC0000"}

	got, err := p.Resolve("good")
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", got)

	got, err = p.Resolve("DEGRADED")
	require.NoError(t, err)
	assert.Equal(t, "#FFFF00", got)

	got, err = p.Resolve("bad")
	require.NoError(t, err)
	assert.Equal(t, "#CC0000", got)

	got, err = p.Resolve("white")
	require.NoError(t, err)
	assert.Equal(t, "#FFFFFF", got)

	got, err = p.Resolve("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
