package protocol

import (
	"bufio"
	"bytes"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/rileyhilliard/barstat/internal/block"
)

// Header is the i3bar protocol preamble: the version object and the
// opening of the infinite array.
const Header = "{\"version\":1}\n[\n"

// frameSuffix ends every frame. The array is never closed.
const frameSuffix = "\n,\n"

// frameJSON keeps non-ASCII text as-is and leaves <, > and & unescaped.
var frameJSON = jsoniter.Config{
	EscapeHTML:             false,
	ValidateJsonRawMessage: true,
}.Froze()

// I3bar writes the i3bar JSON protocol.
type I3bar struct {
	w     *bufio.Writer
	state state
	buf   bytes.Buffer
}

// NewI3bar creates an encoder writing to w.
func NewI3bar(w io.Writer) *I3bar {
	return &I3bar{w: bufio.NewWriter(w)}
}

// WriteHeader writes {"version":1} and the opening bracket.
func (e *I3bar) WriteHeader() error {
	if e.state != headerPending {
		return nil
	}
	if _, err := e.w.WriteString(Header); err != nil {
		return outputError(err)
	}
	if err := e.w.Flush(); err != nil {
		return outputError(err)
	}
	e.state = streaming
	return nil
}

// WriteFrame writes one compact JSON array followed by a newline, a comma
// and a newline, then flushes.
func (e *I3bar) WriteFrame(blocks []block.Block) error {
	if err := e.WriteHeader(); err != nil {
		return err
	}

	frame, err := EncodeFrame(blocks)
	if err != nil {
		return outputError(err)
	}

	e.buf.Reset()
	e.buf.Write(frame)
	e.buf.WriteString(frameSuffix)

	if _, err := e.w.Write(e.buf.Bytes()); err != nil {
		return outputError(err)
	}
	if err := e.w.Flush(); err != nil {
		return outputError(err)
	}
	return nil
}

// EncodeFrame renders blocks as a compact JSON array. Text is made valid
// UTF-8 first.
func EncodeFrame(blocks []block.Block) ([]byte, error) {
	clean := make([]block.Block, len(blocks))
	for i, b := range blocks {
		clean[i] = b.Sanitize()
	}
	return frameJSON.Marshal(clean)
}
