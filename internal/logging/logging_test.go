package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	l, err := New("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = New("")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))

	l, err = New("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	_, err = New("loud")
	require.Error(t, err)
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
