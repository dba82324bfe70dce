// Package parser implements the recursive-descent parser that turns a
// tokenized strategy source into a typed ast.Program.
//
// Grammar (lowest to highest precedence):
//
//	or-expr   := and-expr ( "or" and-expr )*
//	and-expr  := not-expr ( "and" not-expr )*
//	not-expr  := "not" not-expr | cmp-expr
//	cmp-expr  := add-expr ( (">"|"<"|">="|"<="|"=="|"!=") add-expr )?
//	add-expr  := mul-expr ( ("+"|"-") mul-expr )*
//	mul-expr  := unary ( ("*"|"/"|"%") unary )*
//	unary     := ("+"|"-") unary | postfix
//	postfix   := primary ( "[" NUMBER "]" )?
//	primary   := NUMBER | STRING | "true" | "false" | "na"
//	           | "(" or-expr ")"
//	           | IDENT ( "." IDENT (call | ε) | call | ε )
//
// Comparisons are non-chainable; an if-block's condition must be a bare
// identifier, not a general expression.
package parser

import (
	"fmt"
	"strconv"

	"pinebt/internal/ast"
	"pinebt/internal/token"
)

// Options controls parse strictness.
type Options struct {
	// Strict turns unrecognized top-level lines into a ParseError instead
	// of silently skipping them (the original builder-tolerant behavior).
	Strict bool
}

// Parse builds an ast.Program from a token stream using default (tolerant)
// options.
func Parse(tokens []token.Token) (*ast.Program, error) {
	return ParseWithOptions(tokens, Options{})
}

// ParseWithOptions builds an ast.Program from a token stream.
func ParseWithOptions(tokens []token.Token, opts Options) (*ast.Program, error) {
	p := &parser{toks: tokens, opts: opts}
	return p.parseProgram()
}

type parser struct {
	toks []token.Token
	pos  int
	opts Options
	prog *ast.Program
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.Eof}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) token.Token {
	i := p.pos + off
	if i >= len(p.toks) || i < 0 {
		return token.Token{Kind: token.Eof}
	}
	return p.toks[i]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &ParseError{Line: p.cur().Line, Msg: fmt.Sprintf(format, args...)}
}

// ── top level ──────────────────────────────────────────────────────────

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{Version: "1"}
	p.prog = prog

	p.skipNewlines()
	if p.cur().Kind == token.Keyword && p.cur().Value == "strategy" {
		decl, err := p.parseStrategyDecl()
		if err != nil {
			return nil, err
		}
		prog.Decl = decl
		p.skipToNewline()
	}

	for p.cur().Kind != token.Eof {
		p.skipNewlines()
		if p.cur().Kind == token.Eof {
			break
		}
		if p.cur().Kind == token.Dedent {
			p.advance()
			continue
		}
		if err := p.parseTopLevelStmt(); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (p *parser) skipNewlines() {
	for p.cur().Kind == token.Newline {
		p.advance()
	}
}

func (p *parser) skipToNewline() {
	for p.cur().Kind != token.Newline && p.cur().Kind != token.Eof && p.cur().Kind != token.Dedent {
		p.advance()
	}
	if p.cur().Kind == token.Newline {
		p.advance()
	}
}

func (p *parser) parseTopLevelStmt() error {
	switch {
	case p.cur().Kind == token.Keyword && p.cur().Value == "if":
		blk, err := p.parseIfBlock()
		if err != nil {
			return err
		}
		p.prog.IfBlocks = append(p.prog.IfBlocks, blk)
		return nil
	case p.looksLikeAssignment():
		return p.parseAssignOrInput()
	default:
		if p.opts.Strict {
			return p.errf("unrecognized top-level statement")
		}
		p.skipToNewline()
		return nil
	}
}

// looksLikeAssignment reports whether the statement starting at p.pos is an
// assignment target: a bare IDENT or a "[" IDENT ("," IDENT)* "]" tuple,
// immediately followed (module intervening tuple contents) by "=".
func (p *parser) looksLikeAssignment() bool {
	if p.cur().Kind == token.Ident {
		return p.peekAt(1).Kind == token.Assign
	}
	if p.cur().Kind == token.LBracket {
		depth := 0
		i := p.pos
		for i < len(p.toks) {
			switch p.toks[i].Kind {
			case token.LBracket:
				depth++
			case token.RBracket:
				depth--
				if depth == 0 {
					i++
					return i < len(p.toks) && p.toks[i].Kind == token.Assign
				}
			case token.Newline, token.Eof:
				return false
			}
			i++
		}
	}
	return false
}

func (p *parser) parseAssignOrInput() error {
	line := p.cur().Line
	if p.cur().Kind == token.Ident &&
		p.peekAt(1).Kind == token.Assign &&
		p.peekAt(2).Kind == token.Ident && p.peekAt(2).Value == "input" &&
		p.peekAt(3).Kind == token.Dot {
		varName := p.cur().Value
		p.advance() // varName
		p.advance() // '='
		decl, err := p.parseInputDecl(varName, line)
		if err != nil {
			return err
		}
		p.prog.Inputs = append(p.prog.Inputs, decl)
		p.skipToNewline()
		return nil
	}

	asg, err := p.parseAssignment()
	if err != nil {
		return err
	}
	p.prog.Assignments = append(p.prog.Assignments, asg)
	p.skipToNewline()
	return nil
}

// ── strategy(...) declaration ─────────────────────────────────────────

func (p *parser) parseStrategyDecl() (*ast.StrategyDecl, error) {
	line := p.cur().Line
	p.advance() // 'strategy'
	if p.cur().Kind != token.LParen {
		return nil, p.errf("expected '(' after strategy")
	}
	p.advance()

	name := ""
	if p.cur().Kind == token.String {
		name = p.cur().Value
		p.advance()
	}

	named := map[string]ast.Expr{}
	for p.cur().Kind == token.Comma {
		p.advance()
		if p.cur().Kind == token.RParen {
			break
		}
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		if arg.Name != "" {
			named[arg.Name] = arg.Value
		}
	}
	if p.cur().Kind != token.RParen {
		return nil, p.errf("expected ')' to close strategy(...)")
	}
	p.advance()
	return &ast.StrategyDecl{Name: name, Named: named, Line: line}, nil
}

// ── input.*(...) declaration ──────────────────────────────────────────

func (p *parser) parseInputDecl(varName string, line int) (*ast.InputDecl, error) {
	if p.cur().Kind != token.Ident || p.cur().Value != "input" {
		return nil, p.errf("expected 'input'")
	}
	p.advance()
	if p.cur().Kind != token.Dot {
		return nil, p.errf("expected '.' after input")
	}
	p.advance()
	if p.cur().Kind != token.Ident {
		return nil, p.errf("expected input kind")
	}
	kind := ast.InputKind(p.cur().Value)
	p.advance()
	if p.cur().Kind != token.LParen {
		return nil, p.errf("expected '(' after input.%s", kind)
	}
	p.advance()

	def, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	title := ""
	named := map[string]ast.Expr{}
	for p.cur().Kind == token.Comma {
		p.advance()
		if p.cur().Kind == token.RParen {
			break
		}
		// The second positional argument is ambiguous: it may be the title
		// string, or the first keyword argument may appear directly. A bare
		// string literal not followed by '=' is treated as the title.
		if title == "" && p.cur().Kind == token.String {
			title = p.cur().Value
			p.advance()
			continue
		}
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		if arg.Name != "" {
			named[arg.Name] = arg.Value
		}
	}
	if p.cur().Kind != token.RParen {
		return nil, p.errf("expected ')' to close input.%s(...)", kind)
	}
	p.advance()
	return &ast.InputDecl{VarName: varName, Kind: kind, Default: def, Title: title, Named: named, Line: line}, nil
}

// ── assignment ─────────────────────────────────────────────────────────

func (p *parser) parseAssignment() (*ast.Assignment, error) {
	line := p.cur().Line
	var targets []string

	if p.cur().Kind == token.LBracket {
		p.advance()
		for p.cur().Kind != token.RBracket {
			if p.cur().Kind == token.Comma {
				p.advance()
				continue
			}
			if p.cur().Kind != token.Ident {
				return nil, p.errf("expected identifier in tuple-assignment target")
			}
			targets = append(targets, p.cur().Value)
			p.advance()
		}
		p.advance() // ']'
	} else {
		if p.cur().Kind != token.Ident {
			return nil, p.errf("expected assignment target")
		}
		targets = []string{p.cur().Value}
		p.advance()
	}

	if p.cur().Kind != token.Assign {
		return nil, p.errf("expected '=' in assignment")
	}
	p.advance()

	val, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Targets: targets, Value: val, Line: line}, nil
}

// ── if-block ───────────────────────────────────────────────────────────

func (p *parser) parseIfBlock() (*ast.IfBlock, error) {
	line := p.cur().Line
	p.advance() // 'if'
	if p.cur().Kind != token.Ident {
		return nil, p.errf("if condition must be a bare identifier")
	}
	cond := p.cur().Value
	p.advance()

	p.skipToNewline()
	if p.cur().Kind != token.Indent {
		return nil, p.errf("expected indented block after 'if %s'", cond)
	}
	p.advance()

	var body []*ast.StrategyAction
	for p.cur().Kind != token.Dedent && p.cur().Kind != token.Eof {
		if p.cur().Kind == token.Newline {
			p.advance()
			continue
		}
		act, err := p.parseStrategyAction()
		if err != nil {
			return nil, err
		}
		if act != nil {
			body = append(body, act)
		}
	}
	if p.cur().Kind == token.Dedent {
		p.advance()
	}
	return &ast.IfBlock{ConditionName: cond, Body: body, Line: line}, nil
}

func (p *parser) parseStrategyAction() (*ast.StrategyAction, error) {
	line := p.cur().Line
	if !(p.cur().Kind == token.Keyword && p.cur().Value == "strategy") {
		p.skipToNewline()
		return nil, nil
	}
	p.advance()
	if p.cur().Kind != token.Dot {
		return nil, p.errf("expected '.' after strategy")
	}
	p.advance()
	if p.cur().Kind != token.Ident {
		return nil, p.errf("expected strategy action name")
	}
	actionName := p.cur().Value
	p.advance()

	var kind ast.ActionKind
	switch actionName {
	case "entry":
		kind = ast.ActionEntry
	case "close":
		kind = ast.ActionClose
	case "exit":
		kind = ast.ActionExit
	default:
		p.skipToNewline()
		return nil, nil
	}

	if p.cur().Kind != token.LParen {
		return nil, p.errf("expected '(' after strategy.%s", actionName)
	}
	p.advance()
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.RParen {
		return nil, p.errf("expected ')' to close strategy.%s(...)", actionName)
	}
	p.advance()
	p.skipToNewline()
	return &ast.StrategyAction{Action: kind, Args: args, Line: line}, nil
}

// ── expressions ────────────────────────────────────────────────────────

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.Keyword && p.cur().Value == "or" {
		line := p.cur().Line
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: "or", Right: right, Line: line}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.Keyword && p.cur().Value == "and" {
		line := p.cur().Line
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: "and", Right: right, Line: line}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.cur().Kind == token.Keyword && p.cur().Value == "not" {
		line := p.cur().Line
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: "not", Operand: operand, Line: line}, nil
	}
	return p.parseCmp()
}

func isCmpOp(v string) bool {
	switch v {
	case ">", "<", ">=", "<=", "==", "!=":
		return true
	}
	return false
}

func (p *parser) parseCmp() (ast.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == token.Op && isCmpOp(p.cur().Value) {
		op := p.cur().Value
		line := p.cur().Line
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return &ast.BinOp{Left: left, Op: op, Right: right, Line: line}, nil
	}
	return left, nil
}

func (p *parser) parseAdd() (ast.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.Op && (p.cur().Value == "+" || p.cur().Value == "-") {
		op := p.cur().Value
		line := p.cur().Line
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: op, Right: right, Line: line}
	}
	return left, nil
}

func (p *parser) parseMul() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.Op && (p.cur().Value == "*" || p.cur().Value == "/" || p.cur().Value == "%") {
		op := p.cur().Value
		line := p.cur().Line
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Left: left, Op: op, Right: right, Line: line}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.cur().Kind == token.Op && (p.cur().Value == "+" || p.cur().Value == "-") {
		op := p.cur().Value
		line := p.cur().Line
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			return operand, nil
		}
		return &ast.UnaryOp{Op: "-", Operand: operand, Line: line}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	prim, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == token.LBracket {
		line := p.cur().Line
		p.advance()
		if p.cur().Kind != token.Number {
			return nil, p.errf("subscript index must be a non-negative integer literal")
		}
		idxTok := p.cur()
		p.advance()
		if p.cur().Kind != token.RBracket {
			return nil, p.errf("expected ']'")
		}
		p.advance()
		idx, convErr := strconv.Atoi(idxTok.Value)
		if convErr != nil || idx < 0 {
			return nil, p.errf("subscript index must be a non-negative integer literal")
		}
		return &ast.Subscript{Expr: prim, Index: idx, Line: line}, nil
	}
	return prim, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.Number:
		p.advance()
		v, _ := strconv.ParseFloat(t.Value, 64)
		return &ast.Literal{Kind: ast.LitNumber, Num: v, Line: t.Line}, nil
	case token.String:
		p.advance()
		return &ast.Literal{Kind: ast.LitString, Str: t.Value, Line: t.Line}, nil
	case token.Keyword:
		switch t.Value {
		case "true":
			p.advance()
			return &ast.Literal{Kind: ast.LitBool, Bool: true, Line: t.Line}, nil
		case "false":
			p.advance()
			return &ast.Literal{Kind: ast.LitBool, Bool: false, Line: t.Line}, nil
		case "na":
			p.advance()
			return &ast.Literal{Kind: ast.LitNa, Line: t.Line}, nil
		}
		return nil, p.errf("unexpected keyword %q in expression", t.Value)
	case token.LParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != token.RParen {
			return nil, p.errf("expected ')'")
		}
		p.advance()
		return e, nil
	case token.Ident:
		name := t.Value
		line := t.Line
		p.advance()
		if p.cur().Kind == token.Dot {
			p.advance()
			if p.cur().Kind != token.Ident {
				return nil, p.errf("expected identifier after '.'")
			}
			member := p.cur().Value
			p.advance()
			if p.cur().Kind == token.LParen {
				p.advance()
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				if p.cur().Kind != token.RParen {
					return nil, p.errf("expected ')'")
				}
				p.advance()
				return &ast.FuncCall{Namespace: name, Name: member, Args: args, Line: line}, nil
			}
			return &ast.PropertyAccess{Namespace: name, Name: member, Line: line}, nil
		}
		if p.cur().Kind == token.LParen {
			p.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if p.cur().Kind != token.RParen {
				return nil, p.errf("expected ')'")
			}
			p.advance()
			return &ast.FuncCall{Name: name, Args: args, Line: line}, nil
		}
		return &ast.Ident{Name: name, Line: line}, nil
	}
	return nil, p.errf("unexpected token %s", t.Kind)
}

func (p *parser) parseArgs() ([]ast.Arg, error) {
	var args []ast.Arg
	if p.cur().Kind == token.RParen {
		return args, nil
	}
	for {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return args, nil
}

// parseArg distinguishes a named argument (IDENT "=" expr) from a
// positional one via one-token lookahead, since "==" is a distinct Op
// token and never confused with Assign.
func (p *parser) parseArg() (ast.Arg, error) {
	if p.cur().Kind == token.Ident && p.peekAt(1).Kind == token.Assign {
		name := p.cur().Value
		p.advance()
		p.advance() // '='
		val, err := p.parseOr()
		if err != nil {
			return ast.Arg{}, err
		}
		return ast.Arg{Name: name, Value: val}, nil
	}
	val, err := p.parseOr()
	if err != nil {
		return ast.Arg{}, err
	}
	return ast.Arg{Value: val}, nil
}
