package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_PlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	// A bytes.Buffer is not a terminal, so icons are suppressed.
	w.Success("catalog updated")
	assert.Equal(t, "catalog updated\n", buf.String())
}

func TestWriter_StatusWithoutIcon(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Status("", "plain line")
	w.Statusf("", "%d results", 3)
	assert.Equal(t, "plain line\n3 results\n", buf.String())
}

func TestWriter_ErrorAndWarning(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Errorf("failed at scale %d", 500000)
	w.Warningf("%s degraded", "semantic")
	assert.Contains(t, buf.String(), "failed at scale 500000")
	assert.Contains(t, buf.String(), "semantic degraded")
}

func TestWriter_TableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Table([][]string{
		{"1.", "metal impact", "0.0328"},
		{"2.", "rain", "0.0161"},
	})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
	// Second column is padded to the widest cell.
	assert.Contains(t, string(lines[1]), "rain          0.0161")
}

func TestWriter_TableEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)
	w.Table(nil)
	assert.Empty(t, buf.String())
}
