package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuncCallPositionalSkipsNamedArgs(t *testing.T) {
	first := &Literal{Kind: LitNumber, Num: 1}
	second := &Literal{Kind: LitNumber, Num: 2}
	call := &FuncCall{Args: []Arg{
		{Value: first},
		{Name: "length", Value: second},
	}}

	assert.Equal(t, []Expr{first}, call.Positional())
	assert.Equal(t, map[string]Expr{"length": second}, call.Named())
}

func TestStrategyActionPositionalAndNamedSplitTheSameWay(t *testing.T) {
	label := &Literal{Kind: LitString, Str: "L"}
	dir := &PropertyAccess{Namespace: "strategy", Name: "long"}
	action := &StrategyAction{Action: ActionEntry, Args: []Arg{
		{Value: label},
		{Name: "direction", Value: dir},
	}}

	assert.Equal(t, []Expr{label}, action.Positional())
	assert.Equal(t, map[string]Expr{"direction": dir}, action.Named())
}

func TestFuncCallWithOnlyNamedArgsHasEmptyPositional(t *testing.T) {
	call := &FuncCall{Args: []Arg{{Name: "length", Value: &Literal{Kind: LitNumber, Num: 14}}}}
	assert.Empty(t, call.Positional())
}
