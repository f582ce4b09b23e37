// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// split is the result of inspecting a parsed fragment's last statement.
type split struct {
	// capturable is true when the last top-level statement is a bare
	// expression whose value should become the fragment's result, the
	// same distinction Python's ast.Expr vs ast.Assign makes.
	capturable bool

	// cut is the byte offset (0-based) at which the fragment splits into
	// a "statements" program and a standalone "expression" program. Only
	// meaningful when capturable is true.
	cut int
}

// analyze parses source and determines whether its trailing statement is
// capturable. A JS assignment (`x = 1`) is syntactically an
// ExpressionStatement wrapping an AssignExpression; unlike a plain
// expression statement, it is deliberately excluded so that `x = 1` behaves
// like Python's `x = 1` (result None) rather than yielding 1.
func analyze(source string) (split, error) {
	prog, err := parser.ParseFile(nil, "<cell>", source, 0)
	if err != nil {
		return split{}, err
	}
	if len(prog.Body) == 0 {
		return split{}, nil
	}

	last := prog.Body[len(prog.Body)-1]
	exprStmt, ok := last.(*ast.ExpressionStatement)
	if !ok {
		return split{}, nil
	}
	if _, isAssign := exprStmt.Expression.(*ast.AssignExpression); isAssign {
		return split{}, nil
	}

	// Idx is a 1-based byte offset into source; cut is the 0-based index
	// of the first byte of the trailing expression statement.
	cut := int(exprStmt.Idx0()) - 1
	if cut < 0 || cut > len(source) {
		return split{}, nil
	}
	return split{capturable: true, cut: cut}, nil
}
