package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Init()
	defer SetLevel("info")

	SetLevel("warn")
	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "level=WARN")
}

func TestSetupFansOutToFile(t *testing.T) {
	var console, file bytes.Buffer
	Setup(&console, &file)
	defer Init()
	SetLevel("debug")
	defer SetLevel("info")

	Debug("uploading %s", "a.jpg")

	assert.Contains(t, console.String(), "uploading a.jpg")

	line := strings.TrimSpace(file.String())
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "uploading a.jpg", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Init()

	SetLevel("verbose")
	Debug("nope")
	Info("yes")

	assert.NotContains(t, buf.String(), "nope")
	assert.Contains(t, buf.String(), "yes")
}
