package codegen

import "pinebt/internal/ast"

// priceIdent builds a synthetic Ident referencing one of the locally bound
// price series (high, low, close, volume) for implicit-argument injection.
func priceIdent(name string) ast.Expr { return &ast.Ident{Name: name} }

// applyInjection implements the implicit-argument injection table: the
// source dialect permits many indicators to be called with fewer
// arguments than the kernel needs; this prepends/inserts the price series
// arguments the kernel actually requires.
func applyInjection(name string, args []ast.Expr) []ast.Expr {
	switch name {
	case "atr", "dmi", "supertrend", "wpr":
		return prepend(args, "high", "low", "close")
	case "sar":
		return prepend(args, "high", "low")
	case "mfi":
		return insertAfter(args, 1, "high", "low", "close", "volume")
	case "vwma":
		return insertAfter(args, 1, "volume")
	case "kc", "kcw":
		return insertAfter(args, 1, "high", "low", "close")
	case "obv":
		if len(args) == 0 {
			return []ast.Expr{priceIdent("close"), priceIdent("volume")}
		}
	case "accdist", "wad":
		if len(args) == 0 {
			return []ast.Expr{priceIdent("high"), priceIdent("low"), priceIdent("close")}
		}
	case "pvt":
		if len(args) == 0 {
			return []ast.Expr{priceIdent("close"), priceIdent("volume")}
		}
	case "vwap":
		if len(args) == 0 {
			return []ast.Expr{priceIdent("high"), priceIdent("low"), priceIdent("close"), priceIdent("volume")}
		}
	}
	return args
}

func prepend(args []ast.Expr, names ...string) []ast.Expr {
	out := make([]ast.Expr, 0, len(args)+len(names))
	for _, n := range names {
		out = append(out, priceIdent(n))
	}
	return append(out, args...)
}

func insertAfter(args []ast.Expr, pos int, names ...string) []ast.Expr {
	if pos > len(args) {
		pos = len(args)
	}
	out := make([]ast.Expr, 0, len(args)+len(names))
	out = append(out, args[:pos]...)
	for _, n := range names {
		out = append(out, priceIdent(n))
	}
	out = append(out, args[pos:]...)
	return out
}

// canonicalName renames the source-facing "range" spelling to avoid
// colliding with the target language's range builtin. The AST/codegen
// lowering table keeps "range" as the spelling strategy authors write.
func canonicalName(name string) string {
	if name == "range" {
		return "range_indicator"
	}
	return name
}
