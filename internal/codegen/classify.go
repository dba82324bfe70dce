package codegen

import (
	"strings"

	"pinebt/internal/ast"
)

// signalKind is which of the four signal series a strategy.entry/close
// call contributes to. strategy.exit is left unmodeled: the source
// dialect's exit() covers fixed stop/target order placement, which
// classifyAction maps to signalNone, so exit calls are dropped and appear
// in no generated signal series.
type signalKind int

const (
	signalNone signalKind = iota
	signalLongEntry
	signalShortEntry
	signalLongExit
	signalShortExit
)

// classifyAction maps a strategy.entry/close call to one of the four
// signal series using the direction/label heuristic: entry calls whose
// direction argument mentions "short" open a short position (default
// long); close calls whose label mentions "short" (including the
// "空" marker some source strategies use for short-side labels) close a
// short position, otherwise they close long.
func classifyAction(a *ast.StrategyAction) signalKind {
	switch a.Action {
	case ast.ActionEntry:
		if mentionsShort(directionArg(a)) {
			return signalShortEntry
		}
		return signalLongEntry
	case ast.ActionClose:
		if mentionsShort(labelArg(a)) {
			return signalShortExit
		}
		return signalLongExit
	default:
		return signalNone
	}
}

func directionArg(a *ast.StrategyAction) string {
	named := a.Named()
	if v, ok := named["direction"]; ok {
		return literalString(v)
	}
	if v, ok := named["long"]; ok {
		return literalString(v)
	}
	pos := a.Positional()
	if len(pos) >= 2 {
		return literalString(pos[1])
	}
	return ""
}

func labelArg(a *ast.StrategyAction) string {
	named := a.Named()
	if v, ok := named["comment"]; ok {
		return literalString(v)
	}
	if v, ok := named["id"]; ok {
		return literalString(v)
	}
	pos := a.Positional()
	if len(pos) >= 1 {
		return literalString(pos[0])
	}
	return ""
}

func literalString(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Literal:
		if v.Kind == ast.LitString {
			return v.Str
		}
	case *ast.PropertyAccess:
		return v.Namespace + "." + v.Name
	}
	return ""
}

func mentionsShort(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "short") || strings.Contains(s, "空")
}
