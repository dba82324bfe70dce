// Package compiled defines the externally visible shape of a compiled
// strategy: the contract the backtest engine and any caller consume.
package compiled

import "pinebt/internal/ohlcv"

// InputKind mirrors the input.* declaration kinds in the source dialect.
type InputKind string

const (
	KindInt    InputKind = "int"
	KindFloat  InputKind = "float"
	KindBool   InputKind = "bool"
	KindString InputKind = "string"
	KindSource InputKind = "source"
)

// InputSchemaEntry describes one tunable parameter exposed by a compiled
// strategy.
type InputSchemaEntry struct {
	Kind    InputKind
	Default interface{}
	Title   string
	Min     *float64
	Max     *float64
	Step    *float64
	Options []string
}

// Settings holds the strategy-level settings extracted from the
// strategy(...) declaration. Unknown keys are ignored.
type Settings struct {
	InitialCapital  float64
	CommissionValue float64
	Slippage        float64
	DefaultQtyValue float64
	DefaultQtyType  string
	Pyramiding      int
	Currency        string
}

// Params is the resolved parameter map a caller supplies to batch/step,
// keyed by input variable name.
type Params map[string]float64

// StepInputs bundles the five raw numeric arrays the step routine
// consumes, with no dataframe wrapping.
type StepInputs struct {
	Open, High, Low, Close, Volume []float64
}

// StepResult is the four signal booleans describing the last position of
// the input window only.
type StepResult struct {
	LongEntry, LongExit, ShortEntry, ShortExit bool
}

// Signals is the batch routine's four aligned boolean signal sequences.
type Signals struct {
	LongEntries, LongExits, ShortEntries, ShortExits []bool
}

// Strategy is the compiler's output: name, input schema, settings, warmup,
// and the two callable routines. Immutable once constructed and safe to
// share between concurrent workers by read-only reference.
type Strategy struct {
	Name        string
	InputSchema map[string]InputSchemaEntry
	Settings    Settings
	Warmup      int

	Batch func(table *ohlcv.Table, params Params) (Signals, error)
	Step  func(in StepInputs, params Params) (StepResult, error)
}
