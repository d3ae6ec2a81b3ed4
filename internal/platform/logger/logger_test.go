package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnp-recruitment/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json handler with level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"})

		log.Info("dropped")
		log.Warn("kept", "applicant_id", "42")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "rnp-recruitment", line["service"])
	})

	t.Run("text handler and unknown level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.LogConfig{Level: "loud", Format: "TEXT"})

		log.Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}
