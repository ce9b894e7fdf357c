package protocol

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/barstat/internal/block"
	"golang.org/x/term"
)

// TermSeparator goes between blocks that ask for a separator.
const TermSeparator = " | "

// Term renders each frame as one colored line, for trying a config out in
// a terminal.
type Term struct {
	w        *bufio.Writer
	renderer *lipgloss.Renderer
	state    state
	buf      strings.Builder
}

// NewTerm creates a terminal encoder. Colors are only emitted when color
// is true.
func NewTerm(w io.Writer, color bool) *Term {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Term{w: bufio.NewWriter(w), renderer: r}
}

// WriteHeader has nothing to write in terminal mode.
func (e *Term) WriteHeader() error {
	e.state = streaming
	return nil
}

// WriteFrame writes the blocks as one line.
func (e *Term) WriteFrame(blocks []block.Block) error {
	_ = e.WriteHeader()

	e.buf.Reset()
	for i, b := range blocks {
		b = b.Sanitize()
		style := e.renderer.NewStyle()
		if b.Color != "" {
			style = style.Foreground(lipgloss.Color(b.Color))
		}
		e.buf.WriteString(style.Render(b.FullText))
		if b.Separator && i < len(blocks)-1 {
			e.buf.WriteString(TermSeparator)
		}
	}
	e.buf.WriteByte('\n')

	if _, err := e.w.WriteString(e.buf.String()); err != nil {
		return outputError(err)
	}
	if err := e.w.Flush(); err != nil {
		return outputError(err)
	}
	return nil
}

func checkTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
