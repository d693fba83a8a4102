package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout swaps both os.Stdout and color.Output; the color package
// binds its writer at init, so swapping os.Stdout alone misses Printf output.
func captureStdout(f func()) string {
	old := os.Stdout
	oldColor := color.Output
	r, w, _ := os.Pipe()
	os.Stdout = w
	color.Output = w

	f()

	w.Close()
	os.Stdout = old
	color.Output = oldColor

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func captureStderr(f func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestSuccess(t *testing.T) {
	out := captureStdout(func() {
		Success("placed %d artifact(s) for %s", 1, "2024-03")
	})

	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "placed 1 artifact(s) for 2024-03")
}

func TestError(t *testing.T) {
	out := captureStderr(func() {
		Error("run failed: %v", "missing template")
	})

	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "run failed: missing template")
}

func TestInfo(t *testing.T) {
	out := captureStdout(func() {
		Info("resolved %d recipients", 3)
	})

	assert.Contains(t, out, "resolved 3 recipients")
	assert.NotContains(t, out, "✓")
	assert.NotContains(t, out, "✗")
}

func TestWarn(t *testing.T) {
	out := captureStdout(func() {
		Warn("%d records skipped", 2)
	})

	assert.Contains(t, out, "⚠")
	assert.Contains(t, out, "2 records skipped")
}

func TestJSON(t *testing.T) {
	out := captureStdout(func() {
		err := JSON(map[string]interface{}{"period": "2024-03", "records": 3})
		assert.NoError(t, err)
	})

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "2024-03", parsed["period"])
	assert.Equal(t, float64(3), parsed["records"])
	assert.Contains(t, out, "  \"period\":")
}

func TestTableRender(t *testing.T) {
	table := NewTable([]string{"Date", "Slot", "Count"})
	table.AddRow([]string{"2024-03-01", "09:00", "2"})
	table.AddRow([]string{"2024-03-01", "09:30", "1"})

	out := captureStdout(func() {
		table.Render()
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)

	assert.Contains(t, lines[0], "Date")
	assert.Contains(t, lines[0], "Count")
	assert.Contains(t, lines[1], "----")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "09:30")
}

func TestTableRenderEmpty(t *testing.T) {
	table := NewTable([]string{"Name", "Status"})

	out := captureStdout(func() {
		table.Render()
	})

	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "----")
}
