// Package block defines the unit of status-bar output and the helpers that
// build one: placeholder formatting and color normalization.
package block

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorMarker is the text a degraded block shows in place of a measurement.
const ErrorMarker = "ERROR"

// Block is one rendered status item. Field order here is the wire order.
type Block struct {
	Name      string `json:"name"`
	Instance  string `json:"instance"`
	FullText  string `json:"full_text"`
	Separator bool   `json:"separator"`
	Color     string `json:"color,omitempty"`
}

// Validate checks the invariants every emitted block must hold.
func (b Block) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("block for instance %q has no name", b.Instance)
	}
	if b.FullText == "" {
		return fmt.Errorf("block %s/%s has no full_text", b.Name, b.Instance)
	}
	if b.Color != "" && !isHexColor(b.Color) {
		return fmt.Errorf("block %s/%s has invalid color %q", b.Name, b.Instance, b.Color)
	}
	return nil
}

// Sanitize makes a block safe to emit: invalid UTF-8 is replaced and an
// empty full_text falls back to a single space so the block keeps its slot.
func (b Block) Sanitize() Block {
	if !utf8.ValidString(b.FullText) {
		b.FullText = strings.ToValidUTF8(b.FullText, "�")
	}
	if !utf8.ValidString(b.Instance) {
		b.Instance = strings.ToValidUTF8(b.Instance, "�")
	}
	if b.FullText == "" {
		b.FullText = " "
	}
	return b
}

// Error builds the degraded block shown when an instance fails.
func Error(name, instance string, separator bool, color string) Block {
	return Block{
		Name:      name,
		Instance:  instance,
		FullText:  fmt.Sprintf(" %s: %s ", instance, ErrorMarker),
		Separator: separator,
		Color:     color,
	}
}

// IsError reports whether b is a degraded block built by Error.
func (b Block) IsError() bool {
	return strings.HasSuffix(b.FullText, ": "+ErrorMarker+" ")
}
