package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `[
  {"estat":{"nom":"Obert"},"meteor":{"nom":"Pluja"},"avisos":[{"tipus":"Intensitat","evolucions":[{"periodes":[
    {"nom":"12-24h","afectacions":[{"idComarca":13,"perill":3,"nivell":2,"llindar":"20 mm"}]},
    {"nom":"24-48h","afectacions":[{"idComarca":1,"perill":1,"nivell":1}]}
  ]}]}]}
]`

const regionsYAML = `
- code: "01"
  name: Alt Camp
- code: "13"
  name: Barcelonès
- code: "20"
  name: Garrotxa
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_TableDefaultsToFirstPeriod(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-episodes", writeTemp(t, "episodes.json", payload),
		"-catalog", writeTemp(t, "regions.yaml", regionsYAML),
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "periods: [12-24h 24-48h]")
	assert.Contains(t, out, "selected: 12-24h")
	assert.Contains(t, out, "Barcelonès")
	assert.Contains(t, out, "#f03b20")
	assert.Contains(t, out, "#eeeeee")
}

func TestRun_JSONForChosenPeriod(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-episodes", writeTemp(t, "episodes.json", payload),
		"-catalog", writeTemp(t, "regions.yaml", regionsYAML),
		"-period", "24-48h",
		"-json",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		SelectedPeriod string `json:"selected_period"`
		Regions        []struct {
			ID         int    `json:"id"`
			Name       string `json:"name"`
			Level      int    `json:"level"`
			ColorIndex int    `json:"color_index"`
		} `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))

	assert.Equal(t, "24-48h", out.SelectedPeriod)
	require.Len(t, out.Regions, 3)
	assert.Equal(t, 1, out.Regions[0].ID)
	assert.Equal(t, "Alt Camp", out.Regions[0].Name)
	assert.Equal(t, 1, out.Regions[0].ColorIndex)
	assert.Equal(t, -1, out.Regions[1].Level, "Barcelonès has no warning in 24-48h")
	assert.Equal(t, -1, out.Regions[2].Level)
}

func TestRun_EmptyPayload(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-episodes", writeTemp(t, "episodes.json", `[]`),
		"-catalog", writeTemp(t, "regions.yaml", regionsYAML),
	}, &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "selected: (none)")
	assert.Contains(t, stdout.String(), "Garrotxa")
}

func TestRun_Errors(t *testing.T) {
	episodes := writeTemp(t, "episodes.json", payload)

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"missing episodes flag", nil, 2, "Usage"},
		{"unknown period", []string{"-episodes", episodes, "-period", "48-72h"}, 1, "not available"},
		{"missing file", []string{"-episodes", filepath.Join(t.TempDir(), "nope.json")}, 1, "load episodes"},
		{"bad catalogue", []string{"-episodes", episodes, "-catalog", writeTemp(t, "c.txt", "x")}, 1, "load catalogue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), tt.msg)
		})
	}
}
