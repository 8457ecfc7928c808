package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	logger := WithComponent("serve")
	logger.Info().Msg("ready")

	out := buf.String()
	assert.Contains(t, out, `"component":"serve"`)
	assert.Contains(t, out, `"message":"ready"`)
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	Logger.Info().Msg("suppressed")
	Logger.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "kept")
}

func TestChildLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	logger := WithRestaurantID(WithChannel(WithComponent("publisher"), "order_created"), "rest-1")
	logger.Debug().Msg("published")

	require.NotEmpty(t, buf.String())
	out := buf.String()
	assert.Contains(t, out, `"component":"publisher"`)
	assert.Contains(t, out, `"channel":"order_created"`)
	assert.Contains(t, out, `"restaurant_id":"rest-1"`)
}
