// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transform

import (
	"gopkg.in/src-d/go-cagg.v0/sql"
)

// TreeIdentity tracks whether a transformation mutated a tree.
type TreeIdentity bool

const (
	SameTree TreeIdentity = true
	NewTree  TreeIdentity = false
)

// ExprFunc is a function that given an expression will return that
// expression as is or transformed, a TreeIdentity to indicate whether the
// expression was modified, and an error or nil.
type ExprFunc func(e sql.Expression) (sql.Expression, TreeIdentity, error)

// Expr applies a transformation function to the given expression
// tree from the bottom up. Each callback [f] returns a TreeIdentity
// that is aggregated into a final output indicating whether the
// expression tree was changed.
func Expr(e sql.Expression, f ExprFunc) (sql.Expression, TreeIdentity, error) {
	children := e.Children()
	if len(children) == 0 {
		return f(e)
	}

	newChildren, sameC, err := exprChildren(children, func(c sql.Expression) (sql.Expression, TreeIdentity, error) {
		return Expr(c, f)
	})
	if err != nil {
		return nil, SameTree, err
	}

	if !sameC {
		e, err = e.WithChildren(newChildren...)
		if err != nil {
			return nil, SameTree, err
		}
	}

	e, sameN, err := f(e)
	if err != nil {
		return nil, SameTree, err
	}
	return e, sameC && sameN, nil
}

// ExprDown applies a transformation function to the given expression tree
// from the top down. When [f] replaces a node, the replacement is returned
// as is and its children are not visited.
func ExprDown(e sql.Expression, f ExprFunc) (sql.Expression, TreeIdentity, error) {
	ne, same, err := f(e)
	if err != nil {
		return nil, SameTree, err
	}
	if !same {
		return ne, NewTree, nil
	}

	children := e.Children()
	if len(children) == 0 {
		return e, SameTree, nil
	}

	newChildren, sameC, err := exprChildren(children, func(c sql.Expression) (sql.Expression, TreeIdentity, error) {
		return ExprDown(c, f)
	})
	if err != nil {
		return nil, SameTree, err
	}
	if sameC {
		return e, SameTree, nil
	}

	e, err = e.WithChildren(newChildren...)
	if err != nil {
		return nil, SameTree, err
	}
	return e, NewTree, nil
}

func exprChildren(children []sql.Expression, f ExprFunc) ([]sql.Expression, TreeIdentity, error) {
	var newChildren []sql.Expression
	for i, c := range children {
		c, same, err := f(c)
		if err != nil {
			return nil, SameTree, err
		}
		if !same {
			if newChildren == nil {
				newChildren = make([]sql.Expression, len(children))
				copy(newChildren, children)
			}
			newChildren[i] = c
		}
	}

	if newChildren == nil {
		return children, SameTree, nil
	}
	return newChildren, NewTree, nil
}
