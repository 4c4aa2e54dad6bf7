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
	"strings"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// SortBy is an ordering specification inside an aggregate call.
type SortBy struct {
	Expr       sql.Expression
	Descending bool
	NullsFirst bool
}

// AggregateCall is a call to an aggregate function.
type AggregateCall struct {
	FuncOID         sql.OID
	Schema          string
	Name            string
	Args            []sql.Expression
	ArgTypes        []sql.Type
	ResultType      sql.Type
	ResultCollation sql.OID
	InputCollation  sql.OID
	Distinct        bool
	OrderBy         []SortBy
	Filter          sql.Expression
	Star            bool
}

// NewAggregateCall creates a plain call to the aggregate fn.
func NewAggregateCall(fn *sql.Function, resultType sql.Type, args ...sql.Expression) *AggregateCall {
	argTypes := make([]sql.Type, len(args))
	for i, a := range args {
		argTypes[i] = a.Type()
	}
	return &AggregateCall{
		FuncOID:         fn.OID,
		Schema:          fn.Schema,
		Name:            fn.Name,
		Args:            args,
		ArgTypes:        argTypes,
		ResultType:      resultType,
		ResultCollation: resultCollation(resultType, args),
		InputCollation:  inputCollation(args),
	}
}

// Type implements the Expression interface.
func (a *AggregateCall) Type() sql.Type { return a.ResultType }

// Typmod implements the Expression interface.
func (*AggregateCall) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (a *AggregateCall) Collation() sql.OID { return a.ResultCollation }

// Children implements the Expression interface. Arguments come first,
// then ORDER BY expressions, then the FILTER predicate.
func (a *AggregateCall) Children() []sql.Expression {
	children := make([]sql.Expression, 0, len(a.Args)+len(a.OrderBy)+1)
	children = append(children, a.Args...)
	for _, o := range a.OrderBy {
		children = append(children, o.Expr)
	}
	if a.Filter != nil {
		children = append(children, a.Filter)
	}
	return children
}

// WithChildren implements the Expression interface.
func (a *AggregateCall) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	expected := len(a.Args) + len(a.OrderBy)
	if a.Filter != nil {
		expected++
	}
	if len(children) != expected {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), expected)
	}

	na := *a
	na.Args = children[:len(a.Args)]
	if len(a.OrderBy) > 0 {
		na.OrderBy = make([]SortBy, len(a.OrderBy))
		for i, o := range a.OrderBy {
			na.OrderBy[i] = SortBy{Expr: children[len(a.Args)+i], Descending: o.Descending, NullsFirst: o.NullsFirst}
		}
	}
	if a.Filter != nil {
		na.Filter = children[len(children)-1]
	}
	return &na, nil
}

func (a *AggregateCall) String() string {
	var sb strings.Builder
	sb.WriteString(qualifiedName(a.Schema, a.Name))
	sb.WriteString("(")
	if a.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if a.Star {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(exprsString(a.Args), ", "))
	}
	if len(a.OrderBy) > 0 {
		order := make([]string, len(a.OrderBy))
		for i, o := range a.OrderBy {
			order[i] = o.Expr.String()
			if o.Descending {
				order[i] += " DESC"
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(order, ", "))
	}
	sb.WriteString(")")
	if a.Filter != nil {
		sb.WriteString(fmt.Sprintf(" FILTER (WHERE %s)", a.Filter))
	}
	return sb.String()
}

func (a *AggregateCall) attributes() []interface{} {
	argTypes := make([]uint32, len(a.ArgTypes))
	for i, t := range a.ArgTypes {
		argTypes[i] = uint32(t.OID)
	}
	order := make([]bool, 0, 2*len(a.OrderBy))
	for _, o := range a.OrderBy {
		order = append(order, o.Descending, o.NullsFirst)
	}
	return []interface{}{
		"aggregate", uint32(a.FuncOID), argTypes, uint32(a.ResultType.OID),
		uint32(a.ResultCollation), uint32(a.InputCollation),
		a.Distinct, a.Star, len(a.Args), order, a.Filter != nil,
	}
}
