package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewHonorsRecognizedLevel(t *testing.T) {
	l := New("debug")
	assert.NotNil(t, l)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestNewFallsBackToInfoOnUnrecognizedLevel(t *testing.T) {
	l := New("not-a-real-level")
	assert.NotNil(t, l)
	core := l.Desugar().Core()
	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))
}

func TestNewAtErrorLevelSuppressesInfo(t *testing.T) {
	l := New("error")
	core := l.Desugar().Core()
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	assert.False(t, core.Enabled(zapcore.InfoLevel))
}
