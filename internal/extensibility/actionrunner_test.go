package extensibility

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/tesmx/examples/counter"
)

func TestLoggingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	boom := errors.New("boom")
	calls := 0
	h := LoggingHandler(func(cmd counter.Log) error {
		calls++
		if cmd.Message == "fail" {
			return boom
		}
		return nil
	}, log)

	require.NoError(t, h(counter.Log{Message: "ok"}))
	require.ErrorIs(t, h(counter.Log{Message: "fail"}), boom)
	assert.Equal(t, 2, calls)

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"command":"log"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"took"`)
}

func TestRecoveringHandler(t *testing.T) {
	h := RecoveringHandler(func(counter.Log) error { panic("bad effect") })
	err := h(counter.Log{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad effect")
	assert.Contains(t, err.Error(), `"log"`)

	ok := RecoveringHandler(func(counter.Log) error { return nil })
	assert.NoError(t, ok(counter.Log{}))
}
