package bterrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeGenErrorIncludesMessage(t *testing.T) {
	err := &CodeGenError{Msg: "unresolved identifier foo"}
	assert.Equal(t, "codegen: unresolved identifier foo", err.Error())
}

func TestParamErrorReportsNameValueAndBound(t *testing.T) {
	err := &ParamError{Name: "length", Value: -5, Bound: ">0"}
	assert.Equal(t, `param "length"=-5 violates bound >0`, err.Error())
}

func TestDataErrorIncludesMessage(t *testing.T) {
	err := &DataError{Msg: "empty result"}
	assert.Equal(t, "data: empty result", err.Error())
}

func TestRuntimeKernelErrorIncludesKernelAndBarIndex(t *testing.T) {
	err := &RuntimeKernelError{Kernel: "rsi", BarIndex: 42, Msg: "index out of range"}
	assert.Equal(t, "kernel rsi: bar 42: index out of range", err.Error())
}

func TestCancelledIsAStableSentinel(t *testing.T) {
	assert.True(t, errors.Is(Cancelled, Cancelled))
	assert.Equal(t, "backtest: cancelled", Cancelled.Error())
}
