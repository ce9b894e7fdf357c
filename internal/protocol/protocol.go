// Package protocol writes frames of blocks to the status bar.
package protocol

import (
	"io"
	"os"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
)

// Encoder writes the stream preamble once and then one frame per cycle.
// A frame is written with a single call to the underlying writer, so a
// reader never sees half of one.
type Encoder interface {
	// WriteHeader writes the preamble. Calling it again is a no-op.
	WriteHeader() error
	// WriteFrame writes blocks in order, writing the header first if it
	// hasn't been.
	WriteFrame(blocks []block.Block) error
}

// state tracks whether the preamble has gone out.
type state int

const (
	headerPending state = iota
	streaming
)

// New returns the encoder for an output mode.
func New(mode string, w io.Writer) (Encoder, error) {
	switch mode {
	case config.OutputI3bar, "":
		return NewI3bar(w), nil
	case config.OutputTerm:
		return NewTerm(w, isTerminal(w)), nil
	}
	return nil, errors.New(errors.ErrConfig,
		"unknown output mode "+mode,
		"Use i3bar or term.")
}

func outputError(err error) error {
	return errors.WrapWithCode(err, errors.ErrOutput,
		"Failed to write to the status bar",
		"The bar closed its end of the pipe; barstat stops here.")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && checkTerminal(f)
}
