package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []block.Block{
	{Name: "disk_space", Instance: "root", FullText: " /: 12 GiB ", Separator: false},
	{Name: "date_time", Instance: "clock", FullText: " 09:05 ", Separator: true, Color: "#00FFFF"},
}

func TestI3bar_Framing(t *testing.T) {
	var out bytes.Buffer
	enc := NewI3bar(&out)

	require.NoError(t, enc.WriteHeader())
	require.NoError(t, enc.WriteFrame(sample))
	require.NoError(t, enc.WriteFrame(sample[:1]))

	want := "{\"version\":1}\n[\n" +
		`[{"name":"disk_space","instance":"root","full_text":" /: 12 GiB ","separator":false},` +
		`{"name":"date_time","instance":"clock","full_text":" 09:05 ","separator":true,"color":"#00FFFF"}]` +
		"\n,\n" +
		`[{"name":"disk_space","instance":"root","full_text":" /: 12 GiB ","separator":false}]` +
		"\n,\n"
	assert.Equal(t, want, out.String())
}

func TestI3bar_StreamParsesOnceClosed(t *testing.T) {
	var out bytes.Buffer
	enc := NewI3bar(&out)
	for i := 0; i < 3; i++ {
		require.NoError(t, enc.WriteFrame(sample))
	}

	header, body, ok := strings.Cut(out.String(), "\n")
	require.True(t, ok)

	var version map[string]int
	require.NoError(t, json.Unmarshal([]byte(header), &version))
	assert.Equal(t, 1, version["version"])

	body = strings.TrimSuffix(body, ",\n") + "]"
	var frames [][]block.Block
	require.NoError(t, json.Unmarshal([]byte(body), &frames))
	require.Len(t, frames, 3)
	assert.Equal(t, sample, frames[2])
}

func TestI3bar_HeaderOnce(t *testing.T) {
	var out bytes.Buffer
	enc := NewI3bar(&out)

	require.NoError(t, enc.WriteFrame(nil))
	require.NoError(t, enc.WriteHeader())
	require.NoError(t, enc.WriteFrame(nil))

	assert.Equal(t, 1, strings.Count(out.String(), `{"version":1}`))
	assert.Equal(t, Header+"[]\n,\n[]\n,\n", out.String())
}

func TestI3bar_TextEncoding(t *testing.T) {
	frame, err := EncodeFrame([]block.Block{{Name: "volume", FullText: " ♫ <40%> & \"x\" \xff"}})
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"volume","instance":"","full_text":" ♫ <40%> & \"x\" �","separator":false}]`, string(frame))
}

// countingWriter records each Write call.
type countingWriter struct {
	writes []string
	fail   bool
}

func (w *countingWriter) Write(p []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("broken pipe")
	}
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func TestI3bar_OneWritePerFrame(t *testing.T) {
	w := &countingWriter{}
	enc := NewI3bar(w)

	require.NoError(t, enc.WriteHeader())
	require.NoError(t, enc.WriteFrame(sample))

	require.Len(t, w.writes, 2)
	assert.Equal(t, Header, w.writes[0])
	assert.True(t, strings.HasSuffix(w.writes[1], "]\n,\n"))
}

func TestI3bar_WriteFailureIsOutputError(t *testing.T) {
	enc := NewI3bar(&countingWriter{fail: true})
	err := enc.WriteFrame(sample)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrOutput))
}

func TestTerm_PlainWhenNotATerminal(t *testing.T) {
	var out bytes.Buffer
	enc := NewTerm(&out, false)

	blocks := []block.Block{
		{Name: "a", FullText: "one", Separator: true, Color: "#FF0000"},
		{Name: "b", FullText: "two", Separator: false},
		{Name: "c", FullText: "three", Separator: true},
	}
	require.NoError(t, enc.WriteHeader())
	require.NoError(t, enc.WriteFrame(blocks))
	require.NoError(t, enc.WriteFrame(blocks[:1]))

	assert.Equal(t, "one | twothree\none\n", out.String())
}

func TestTerm_WriteFailure(t *testing.T) {
	err := NewTerm(&countingWriter{fail: true}, false).WriteFrame(sample)
	assert.True(t, errors.IsCode(err, errors.ErrOutput))
}

func TestNew(t *testing.T) {
	var out bytes.Buffer

	enc, err := New("i3bar", &out)
	require.NoError(t, err)
	assert.IsType(t, &I3bar{}, enc)

	enc, err = New("term", &out)
	require.NoError(t, err)
	assert.IsType(t, &Term{}, enc)

	_, err = New("html", &out)
	assert.Error(t, err)
}
