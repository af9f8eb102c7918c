package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, "warn"))
	defer SetupWriter(&bytes.Buffer{}, "info")

	New("module", "test").Info("hidden message")
	New("module", "test").Warn("visible message", "epoch", 3)

	assert.NotContains(t, buf.String(), "hidden message")
	assert.Contains(t, buf.String(), "visible message")
	assert.Contains(t, buf.String(), "epoch=3")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, SetupWriter(&bytes.Buffer{}, "loud"))
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error("nothing happens", "k", "v")
}
