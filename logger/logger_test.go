package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("prod writes json", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "prod", false).Info("report created", "report_id", "r1")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "report created", line["msg"])
		assert.Equal(t, "r1", line["report_id"])
		assert.Equal(t, "wastewatch", line["service"])
	})

	t.Run("debug level only when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "dev", false).Debug("hidden")
		assert.Empty(t, buf.String())

		NewWithWriter(&buf, "dev", true).Debug("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
