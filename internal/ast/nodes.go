// Package ast defines the typed syntax tree produced by the parser.
package ast

// LiteralKind distinguishes the underlying type of a Literal node.
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
	LitNa
)

// Node is implemented by every AST node.
type Node interface{ astNode() }

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every top-level statement node.
type Stmt interface {
	Node
	stmtNode()
}

type base struct{}

func (base) astNode() {}

type exprBase struct{ base }

func (exprBase) exprNode() {}

type stmtBase struct{ base }

func (stmtBase) stmtNode() {}

// Literal is a constant: number, string, bool, or na.
type Literal struct {
	exprBase
	Kind   LiteralKind
	Num    float64
	Str    string
	Bool   bool
	Line   int
}

// Ident is a bare identifier reference.
type Ident struct {
	exprBase
	Name string
	Line int
}

// PropertyAccess is a dotted name not followed by a call, e.g. strategy.long.
type PropertyAccess struct {
	exprBase
	Namespace string
	Name      string
	Line      int
}

// Arg is one call argument, either positional (Name == "") or named.
type Arg struct {
	Name  string
	Value Expr
}

// FuncCall is a (possibly namespaced) function call with positional and
// named arguments.
type FuncCall struct {
	exprBase
	Namespace string // "" if unqualified
	Name      string
	Args      []Arg
	Line      int
}

// Positional returns the positional-only arguments in order.
func (f *FuncCall) Positional() []Expr {
	out := make([]Expr, 0, len(f.Args))
	for _, a := range f.Args {
		if a.Name == "" {
			out = append(out, a.Value)
		}
	}
	return out
}

// Named returns the named arguments as a map.
func (f *FuncCall) Named() map[string]Expr {
	out := make(map[string]Expr)
	for _, a := range f.Args {
		if a.Name != "" {
			out[a.Name] = a.Value
		}
	}
	return out
}

// Subscript is a historical lookback: expr[index].
type Subscript struct {
	exprBase
	Expr  Expr
	Index int
	Line  int
}

// UnaryOp is a prefix operator: "-" or "not".
type UnaryOp struct {
	exprBase
	Op      string
	Operand Expr
	Line    int
}

// BinOp is a binary operator: arithmetic, comparison, or logical.
type BinOp struct {
	exprBase
	Left  Expr
	Op    string
	Right Expr
	Line  int
}

// StrategyDecl is the optional top-level strategy(...) declaration.
type StrategyDecl struct {
	stmtBase
	Name  string
	Named map[string]Expr
	Line  int
}

// InputKind distinguishes input.* declaration flavors.
type InputKind string

const (
	InputInt    InputKind = "int"
	InputFloat  InputKind = "float"
	InputBool   InputKind = "bool"
	InputString InputKind = "string"
	InputSource InputKind = "source"
)

// InputDecl declares a tunable strategy parameter.
type InputDecl struct {
	stmtBase
	VarName string
	Kind    InputKind
	Default Expr
	Title   string
	Named   map[string]Expr
	Line    int
}

// Assignment binds one or more targets (tuple destructuring) to an expr.
type Assignment struct {
	stmtBase
	Targets []string
	Value   Expr
	Line    int
}

// ActionKind distinguishes strategy.* call actions.
type ActionKind string

const (
	ActionEntry ActionKind = "entry"
	ActionClose ActionKind = "close"
	ActionExit  ActionKind = "exit"
)

// StrategyAction is a strategy.entry/close/exit(...) call inside an IfBlock.
type StrategyAction struct {
	stmtBase
	Action ActionKind
	Args   []Arg
	Line   int
}

// Positional returns the positional-only arguments in order.
func (a *StrategyAction) Positional() []Expr {
	out := make([]Expr, 0, len(a.Args))
	for _, arg := range a.Args {
		if arg.Name == "" {
			out = append(out, arg.Value)
		}
	}
	return out
}

// Named returns the named arguments as a map.
func (a *StrategyAction) Named() map[string]Expr {
	out := make(map[string]Expr)
	for _, arg := range a.Args {
		if arg.Name != "" {
			out[arg.Name] = arg.Value
		}
	}
	return out
}

// IfBlock gates a sequence of StrategyActions behind a bare condition name.
type IfBlock struct {
	stmtBase
	ConditionName string
	Body          []*StrategyAction
	Line          int
}

// Program is the parse root.
type Program struct {
	base
	Version     string
	Decl        *StrategyDecl
	Inputs      []*InputDecl
	Assignments []*Assignment
	IfBlocks    []*IfBlock
}
