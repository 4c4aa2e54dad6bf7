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
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
)

var (
	gtOp = &sql.Operator{OID: 674, Name: ">", Left: sql.Float64, Right: sql.Float64, ResultType: sql.Boolean, FuncOID: 297}
	avg  = &sql.Function{OID: 2105, Schema: sql.CatalogSchema, Name: "avg", ArgTypes: []sql.Type{sql.Float64}, ReturnType: sql.Float64}
)

func col(attno int, name string) *expression.ColumnRef {
	return expression.NewColumnRef(1, attno, name, sql.Float64, -1, sql.InvalidOID)
}

func TestExpr(t *testing.T) {
	require := require.New(t)

	e := expression.NewAnd(
		expression.NewOpExpr(gtOp, col(1, "a"), col(2, "b")),
		expression.NewIsNull(col(1, "a"), false),
	)

	result, same, err := Expr(e, func(e sql.Expression) (sql.Expression, TreeIdentity, error) {
		if c, ok := e.(*expression.ColumnRef); ok && c.Name() == "a" {
			return col(3, "c"), NewTree, nil
		}
		return e, SameTree, nil
	})
	require.NoError(err)
	require.Equal(NewTree, same)
	require.Equal("((c > b) AND (c IS NULL))", result.String())
	require.Equal("((a > b) AND (a IS NULL))", e.String())

	result, same, err = Expr(e, func(e sql.Expression) (sql.Expression, TreeIdentity, error) {
		return e, SameTree, nil
	})
	require.NoError(err)
	require.Equal(SameTree, same)
	require.True(result == e)
}

func TestExprDown(t *testing.T) {
	require := require.New(t)

	agg := expression.NewAggregateCall(avg, sql.Float64, col(1, "a"))
	e := expression.NewOpExpr(gtOp, agg, col(2, "b"))

	var visited int
	result, same, err := ExprDown(e, func(e sql.Expression) (sql.Expression, TreeIdentity, error) {
		visited++
		if _, ok := e.(*expression.AggregateCall); ok {
			return expression.NewAggregateCall(avg, sql.Float64, agg), NewTree, nil
		}
		return e, SameTree, nil
	})
	require.NoError(err)
	require.Equal(NewTree, same)
	// op, aggregate (replaced, not descended) and b.
	require.Equal(3, visited)
	require.Equal("(avg(avg(a)) > b)", result.String())

	result, same, err = ExprDown(e, func(e sql.Expression) (sql.Expression, TreeIdentity, error) {
		return e, SameTree, nil
	})
	require.NoError(err)
	require.Equal(SameTree, same)
	require.True(result == e)
}
