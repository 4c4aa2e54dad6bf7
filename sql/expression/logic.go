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

package expression

import (
	"fmt"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// And checks whether two expressions are true.
type And struct {
	BinaryExpression
}

// NewAnd creates a new And expression.
func NewAnd(left, right sql.Expression) sql.Expression {
	return &And{BinaryExpression{Left: left, Right: right}}
}

// JoinAnd joins several expressions with And.
func JoinAnd(exprs ...sql.Expression) sql.Expression {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return NewAnd(exprs[0], JoinAnd(exprs[1:]...))
	}
}

func (a *And) String() string {
	return fmt.Sprintf("(%s AND %s)", a.Left, a.Right)
}

// Type implements the Expression interface.
func (*And) Type() sql.Type { return sql.Boolean }

// Typmod implements the Expression interface.
func (*And) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (*And) Collation() sql.OID { return sql.InvalidOID }

// WithChildren implements the Expression interface.
func (a *And) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), 2)
	}
	return NewAnd(children[0], children[1]), nil
}

func (*And) attributes() []interface{} { return []interface{}{"and"} }

// Or checks whether one of the two given expressions is true.
type Or struct {
	BinaryExpression
}

// NewOr creates a new Or expression.
func NewOr(left, right sql.Expression) sql.Expression {
	return &Or{BinaryExpression{Left: left, Right: right}}
}

func (o *Or) String() string {
	return fmt.Sprintf("(%s OR %s)", o.Left, o.Right)
}

// Type implements the Expression interface.
func (*Or) Type() sql.Type { return sql.Boolean }

// Typmod implements the Expression interface.
func (*Or) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (*Or) Collation() sql.OID { return sql.InvalidOID }

// WithChildren implements the Expression interface.
func (o *Or) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(o, len(children), 2)
	}
	return NewOr(children[0], children[1]), nil
}

func (*Or) attributes() []interface{} { return []interface{}{"or"} }

// Not is a node that negates an expression.
type Not struct {
	UnaryExpression
}

// NewNot returns a new Not node.
func NewNot(child sql.Expression) *Not {
	return &Not{UnaryExpression{Child: child}}
}

func (e *Not) String() string {
	return fmt.Sprintf("(NOT %s)", e.Child)
}

// Type implements the Expression interface.
func (*Not) Type() sql.Type { return sql.Boolean }

// Typmod implements the Expression interface.
func (*Not) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (*Not) Collation() sql.OID { return sql.InvalidOID }

// WithChildren implements the Expression interface.
func (e *Not) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 1)
	}
	return NewNot(children[0]), nil
}

func (*Not) attributes() []interface{} { return []interface{}{"not"} }

// IsNull is an expression that checks if an expression is null.
type IsNull struct {
	UnaryExpression
	Negated bool
}

// NewIsNull creates a new IsNull expression.
func NewIsNull(child sql.Expression, negated bool) *IsNull {
	return &IsNull{UnaryExpression{Child: child}, negated}
}

func (e *IsNull) String() string {
	if e.Negated {
		return fmt.Sprintf("(%s IS NOT NULL)", e.Child)
	}
	return fmt.Sprintf("(%s IS NULL)", e.Child)
}

// Type implements the Expression interface.
func (*IsNull) Type() sql.Type { return sql.Boolean }

// Typmod implements the Expression interface.
func (*IsNull) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (*IsNull) Collation() sql.OID { return sql.InvalidOID }

// WithChildren implements the Expression interface.
func (e *IsNull) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 1)
	}
	return NewIsNull(children[0], e.Negated), nil
}

func (e *IsNull) attributes() []interface{} { return []interface{}{"isnull", e.Negated} }
