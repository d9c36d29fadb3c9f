package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML))
	assert.IsType(t, &TableFormatter{}, NewFormatter(FormatTable))
	assert.IsType(t, &TableFormatter{}, NewFormatter("unknown"))
}

type sample struct {
	Name string `json:"name" yaml:"name"`
	Port int    `json:"port" yaml:"port"`
}

func (s sample) Table() *Table {
	t := &Table{Headers: []string{"NAME", "PORT"}}
	t.AddRow(s.Name, s.Port)
	return t
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sample{Name: "http", Port: 8090}))
	assert.Equal(t, "{\n  \"name\": \"http\",\n  \"port\": 8090\n}\n", buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"webserver": map[string]any{"port": 8090}}
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, data))
	assert.Equal(t, "webserver:\n  port: 8090\n", buf.String())
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, sample{Name: "http", Port: 8090}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "NAME  PORT", lines[0])
	assert.Equal(t, "http  8090", lines[1])
}

func TestTableFormatter_FallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, map[string]int{"port": 8090}))
	assert.Equal(t, "port: 8090\n", buf.String())
}

func TestTable_EmptyCells(t *testing.T) {
	tbl := &Table{Headers: []string{"A", "B", "C"}}
	tbl.AddRow("", nil, true)

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))
	assert.Contains(t, buf.String(), "-  -  yes")
}
