package util

import (
	"github.com/stretchr/testify/assert"
	"strings"
	"testing"
	"time"
)

type testRow struct {
	Name  string    `json:"name" yaml:"name"`
	Count int       `json:"count" yaml:"count"`
	At    time.Time `json:"at" yaml:"at"`
}

func TestTableFormatterSlice(t *testing.T) {
	at := time.Date(2023, 11, 14, 22, 13, 20, 0, time.Local)
	out := NewFormatter("table").Format([]testRow{{Name: "Lab_101", Count: 2, At: at}, {Name: "Gym", Count: 0}})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "COUNT")
	assert.Contains(t, lines[1], "2023-11-14 22:13:20")
	assert.Contains(t, lines[2], "-")
}

func TestTableFormatterEmpty(t *testing.T) {
	assert.Equal(t, "No results.\n", NewFormatter("table").Format([]testRow{}))
}

func TestTableFormatterStruct(t *testing.T) {
	out := NewFormatter("").Format(&testRow{Name: "Lab_101", Count: 1})
	assert.Contains(t, out, "Name:")
	assert.Contains(t, out, "Lab_101")
}

func TestJSONAndYAMLFormatter(t *testing.T) {
	row := testRow{Name: "Lab_101", Count: 3}

	assert.Contains(t, NewFormatter("json").Format(row), `"name": "Lab_101"`)
	assert.Contains(t, NewFormatter("YAML").Format(row), "name: Lab_101")
}

func TestWrapString(t *testing.T) {
	wrapped := WrapString(strings.Repeat("word ", 30))
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
}
