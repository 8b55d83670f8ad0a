package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/illmade-knight/go-intseq/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("JSON output honours the level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(logging.Config{Level: "warn"}, &buf)

		logger.Info().Msg("hidden")
		logger.Warn().Str("component", "test").Msg("shown")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "shown", rec["message"])
		assert.Equal(t, "warn", rec["level"])
		assert.Contains(t, rec, "time")
	})

	t.Run("Unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(logging.Config{Level: "chatty"}, &buf)

		logger.Debug().Msg("hidden")
		logger.Info().Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("Pretty output is not JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(logging.Config{Level: "info", Pretty: true}, &buf)

		logger.Info().Msg("hello")

		assert.Contains(t, buf.String(), "hello")
		assert.False(t, json.Valid(buf.Bytes()))
	})
}
