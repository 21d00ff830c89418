package log

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fastjson"
)

func TestChildLoggersCarryModuleAndEvent(t *testing.T) {
	var buf bytes.Buffer
	SetWriter("test", &buf)
	defer RemoveWriter("test")

	logger := Circle("read")
	logger.Info().Uint64("circle_id", 7).Msg("Circle read.")

	var p fastjson.Parser
	v, err := p.ParseBytes(bytes.TrimSpace(buf.Bytes()))
	assert.NoError(t, err)

	assert.Equal(t, ModuleCircle, string(v.GetStringBytes(KeyModule)))
	assert.Equal(t, "read", string(v.GetStringBytes(KeyEvent)))
	assert.EqualValues(t, 7, v.GetUint64("circle_id"))
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink gone")
}

func TestBrokenSinkDoesNotStarveOthers(t *testing.T) {
	var buf bytes.Buffer
	SetWriter("broken", brokenWriter{})
	SetWriter("good", &buf)
	defer RemoveWriter("broken")
	defer RemoveWriter("good")

	logger := TX("submitted")
	logger.Info().Msg("Transaction broadcast.")

	assert.NotZero(t, buf.Len())
}

func TestRemoveWriterStopsDelivery(t *testing.T) {
	var buf bytes.Buffer
	SetWriter("test", &buf)

	logger := Market("scan")
	logger.Info().Msg("first")

	before := buf.Len()
	assert.NotZero(t, before)

	RemoveWriter("test")
	logger.Info().Msg("second")

	assert.Equal(t, before, buf.Len())
}
