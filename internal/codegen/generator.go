package codegen

import (
	"fmt"

	"pinebt/internal/ast"
	"pinebt/internal/compiled"
	"pinebt/internal/kernel"
	"pinebt/internal/ohlcv"
	"pinebt/internal/parser"
	"pinebt/internal/token"
)

// Compile runs the full tokenize/parse/generate pipeline over source text,
// the entrypoint callers outside this package use instead of wiring
// token.Tokenize/parser.Parse/Generate themselves.
func Compile(source string) (*compiled.Strategy, error) {
	tokens := token.Tokenize(source)
	prog, err := parser.Parse(tokens)
	if err != nil {
		return nil, fmt.Errorf("codegen: parse: %w", err)
	}
	return Generate(prog, source)
}

// Generate lowers a parsed program into a compiled strategy: an input
// schema, settings, an estimated warmup, and the batch/step routines.
// source is kept only so future error messages can quote the offending
// line; the batch/step routines evaluate prog directly and never re-parse
// source.
func Generate(prog *ast.Program, source string) (*compiled.Strategy, error) {
	schema, defaults := buildInputSchema(prog.Inputs)
	settings := buildSettings(prog.Decl)

	warmup, err := estimateWarmup(prog, defaults)
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}

	name := "strategy"
	if prog.Decl != nil && prog.Decl.Name != "" {
		name = prog.Decl.Name
	}

	strat := &compiled.Strategy{
		Name:        name,
		InputSchema: schema,
		Settings:    settings,
		Warmup:      warmup,
	}
	strat.Batch = func(table *ohlcv.Table, params compiled.Params) (compiled.Signals, error) {
		return runBatch(prog, table, mergeParams(defaults, params))
	}
	strat.Step = func(in compiled.StepInputs, params compiled.Params) (compiled.StepResult, error) {
		return runStep(prog, in, mergeParams(defaults, params))
	}
	return strat, nil
}

func mergeParams(defaults map[string]float64, override compiled.Params) map[string]float64 {
	out := make(map[string]float64, len(defaults)+len(override))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func buildPriceSeries(open, high, low, close, volume []float64) map[string][]float64 {
	return map[string][]float64{
		"open":   open,
		"high":   high,
		"low":    low,
		"close":  close,
		"volume": volume,
		"hl2":    kernel.Mean2(high, low),
		"hlc3":   kernel.Mean3(high, low, close),
		"hlcc4":  kernel.Mean4(high, low, close, close),
		"ohlc4":  kernel.Mean4(open, high, low, close),
	}
}

// runBatch is the single interpreter every Batch and Step call goes
// through: Step (exec_step-equivalent) simply calls this over the
// supplied trailing window and keeps only the last position. See
// opcode.go's package doc for why this keeps the two routines fused
// instead of risking a second, independently-maintained formula.
func runBatch(prog *ast.Program, table *ohlcv.Table, params map[string]float64) (compiled.Signals, error) {
	n := table.Len()
	prices := buildPriceSeries(table.Open, table.High, table.Low, table.Close, table.Volume)
	env := newEnv(n, prices, params)
	bindSourceInputs(prog.Inputs, env)

	for _, a := range prog.Assignments {
		if err := evalAssignment(a, env); err != nil {
			return compiled.Signals{}, fmt.Errorf("codegen: assignment %v: %w", a.Targets, err)
		}
	}

	longEntries := make([]bool, n)
	longExits := make([]bool, n)
	shortEntries := make([]bool, n)
	shortExits := make([]bool, n)

	for _, blk := range prog.IfBlocks {
		cond, ok := env.Series[blk.ConditionName]
		if !ok {
			return compiled.Signals{}, fmt.Errorf("codegen: if-block condition %q is not a bound series", blk.ConditionName)
		}
		boolCond := kernel.CoerceBool(cond)
		for _, action := range blk.Body {
			kind := classifyAction(action)
			if kind == signalNone {
				continue
			}
			var target []bool
			switch kind {
			case signalLongEntry:
				target = longEntries
			case signalShortEntry:
				target = shortEntries
			case signalLongExit:
				target = longExits
			case signalShortExit:
				target = shortExits
			}
			for i := 0; i < n; i++ {
				if boolCond[i] {
					target[i] = true
				}
			}
		}
	}

	return compiled.Signals{
		LongEntries:  longEntries,
		LongExits:    longExits,
		ShortEntries: shortEntries,
		ShortExits:   shortExits,
	}, nil
}

func runStep(prog *ast.Program, in compiled.StepInputs, params map[string]float64) (compiled.StepResult, error) {
	n := len(in.Close)
	if n == 0 {
		return compiled.StepResult{}, fmt.Errorf("codegen: step called with an empty window")
	}
	table := &ohlcv.Table{Open: in.Open, High: in.High, Low: in.Low, Close: in.Close, Volume: in.Volume}
	signals, err := runBatch(prog, table, params)
	if err != nil {
		return compiled.StepResult{}, err
	}
	last := n - 1
	return compiled.StepResult{
		LongEntry:  signals.LongEntries[last],
		LongExit:   signals.LongExits[last],
		ShortEntry: signals.ShortEntries[last],
		ShortExit:  signals.ShortExits[last],
	}, nil
}

func evalAssignment(a *ast.Assignment, env *Env) error {
	if len(a.Targets) > 1 {
		vals, err := evalTuple(a.Value, env)
		if err != nil {
			return err
		}
		for i, t := range a.Targets {
			if i < len(vals) {
				env.bindAssignment(t, vals[i])
			}
		}
		return nil
	}
	val, err := evalExpr(a.Value, env)
	if err != nil {
		return err
	}
	env.bindAssignment(a.Targets[0], val)
	return nil
}

func bindSourceInputs(inputs []*ast.InputDecl, env *Env) {
	for _, in := range inputs {
		if in.Kind != ast.InputSource {
			continue
		}
		name := sourceDefaultName(in.Default)
		series, ok := env.Series[name]
		if !ok {
			series = env.Series["close"]
		}
		env.bindAssignment(in.VarName, series)
	}
}

func sourceDefaultName(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return "close"
}

// estimateWarmup lowers the program once more over a length-1 dummy
// series purely to discover the largest period argument any kernel call
// resolves to; the warmup a caller must discard before trusting output is
// max(3*maxPeriod, 50).
func estimateWarmup(prog *ast.Program, defaults map[string]float64) (int, error) {
	dummy := kernel.Broadcast(1, 1)
	prices := buildPriceSeries(dummy, dummy, dummy, dummy, dummy)
	env := newEnv(1, prices, defaults)
	bindSourceInputs(prog.Inputs, env)

	for _, a := range prog.Assignments {
		if err := evalAssignment(a, env); err != nil {
			return 0, fmt.Errorf("warmup scan: %w", err)
		}
	}

	warmup := 3 * env.maxPeriod
	if warmup < 50 {
		warmup = 50
	}
	return warmup, nil
}

func buildInputSchema(inputs []*ast.InputDecl) (map[string]compiled.InputSchemaEntry, map[string]float64) {
	schema := make(map[string]compiled.InputSchemaEntry, len(inputs))
	defaults := make(map[string]float64, len(inputs))

	for _, in := range inputs {
		entry := compiled.InputSchemaEntry{
			Kind:  compiled.InputKind(in.Kind),
			Title: in.Title,
		}
		switch in.Kind {
		case ast.InputInt, ast.InputFloat, ast.InputBool:
			if v, ok := literalNumber(in.Default); ok {
				entry.Default = v
				defaults[in.VarName] = v
			}
		case ast.InputString:
			if lit, ok := in.Default.(*ast.Literal); ok && lit.Kind == ast.LitString {
				entry.Default = lit.Str
			}
		case ast.InputSource:
			entry.Default = sourceDefaultName(in.Default)
		}
		if v, ok := numericNamed(in.Named, "minval"); ok {
			entry.Min = &v
		}
		if v, ok := numericNamed(in.Named, "maxval"); ok {
			entry.Max = &v
		}
		if v, ok := numericNamed(in.Named, "step"); ok {
			entry.Step = &v
		}
		schema[in.VarName] = entry
	}
	return schema, defaults
}

func buildSettings(decl *ast.StrategyDecl) compiled.Settings {
	s := compiled.Settings{
		InitialCapital:  1_000_000,
		DefaultQtyType:  "percent_of_equity",
		DefaultQtyValue: 100,
		Currency:        "USD",
	}
	if decl == nil {
		return s
	}
	if v, ok := numericNamed(decl.Named, "initial_capital"); ok {
		s.InitialCapital = v
	}
	if v, ok := numericNamed(decl.Named, "commission_value"); ok {
		s.CommissionValue = v
	}
	if v, ok := numericNamed(decl.Named, "slippage"); ok {
		s.Slippage = v
	}
	if v, ok := numericNamed(decl.Named, "default_qty_value"); ok {
		s.DefaultQtyValue = v
	}
	if v, ok := numericNamed(decl.Named, "pyramiding"); ok {
		s.Pyramiding = int(v)
	}
	if e, ok := decl.Named["default_qty_type"]; ok {
		if lit, ok2 := e.(*ast.Literal); ok2 && lit.Kind == ast.LitString {
			s.DefaultQtyType = lit.Str
		}
	}
	if e, ok := decl.Named["currency"]; ok {
		if lit, ok2 := e.(*ast.Literal); ok2 && lit.Kind == ast.LitString {
			s.Currency = lit.Str
		}
	}
	return s
}

func numericNamed(named map[string]ast.Expr, key string) (float64, bool) {
	e, ok := named[key]
	if !ok {
		return 0, false
	}
	return literalNumber(e)
}

func literalNumber(e ast.Expr) (float64, bool) {
	switch v := e.(type) {
	case *ast.Literal:
		switch v.Kind {
		case ast.LitNumber:
			return v.Num, true
		case ast.LitBool:
			if v.Bool {
				return 1, true
			}
			return 0, true
		}
	case *ast.UnaryOp:
		if v.Op == "-" {
			if n, ok := literalNumber(v.Operand); ok {
				return -n, true
			}
		}
	}
	return 0, false
}
