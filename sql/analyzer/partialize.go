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

package analyzer

import (
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-cagg.v0/sql/transform"
)

// partializeAggregates replaces every aggregate call in e, except calls to
// ignore, by the finalization of a partial state column added to m. The
// returned boolean reports whether a column was added.
func partializeAggregates(e sql.Expression, m *matTableColumnInfo, ignore sql.OID) (sql.Expression, bool, error) {
	var added bool
	ne, _, err := transform.ExprDown(e, func(e sql.Expression) (sql.Expression, transform.TreeIdentity, error) {
		agg, ok := e.(*expression.AggregateCall)
		if !ok || agg.FuncOID == ignore {
			return e, transform.SameTree, nil
		}

		ref, err := m.addAggregateEntry(agg)
		if err != nil {
			return nil, transform.SameTree, err
		}
		added = true

		final, err := m.finalizeCall(agg, ref)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return final, transform.NewTree, nil
	})
	if err != nil {
		return nil, false, err
	}
	return ne, added, nil
}

// finalizeCall builds the finalize_agg call combining the partial states
// stored in col into the result of agg. The call carries everything needed
// to find agg again: its signature and its input collation.
func (m *matTableColumnInfo) finalizeCall(agg *expression.AggregateCall, col *expression.ColumnRef) (*expression.AggregateCall, error) {
	fn, ok := m.catalog.Function(agg.FuncOID)
	if !ok {
		return nil, sql.ErrFunctionNotFound.New(agg.Name)
	}

	collSchema := expression.NewNullLiteral(sql.Name, sql.InvalidOID)
	collName := expression.NewNullLiteral(sql.Name, sql.InvalidOID)
	if agg.InputCollation.IsValid() {
		coll, ok := m.catalog.Collation(agg.InputCollation)
		if !ok {
			return nil, sql.ErrCollationNotFound.New(agg.InputCollation)
		}
		collSchema = expression.NewLiteral(coll.Schema, sql.Name).WithCollation(sql.InvalidOID)
		collName = expression.NewLiteral(coll.Name, sql.Name).WithCollation(sql.InvalidOID)
	}

	args := []sql.Expression{
		expression.NewLiteral(fn.Signature(), sql.Text),
		collSchema,
		collName,
		col,
		expression.NewNullLiteral(agg.ResultType, agg.ResultCollation),
	}

	final := expression.NewAggregateCall(m.registry.Finalize, agg.ResultType, args...)
	final.ArgTypes = append([]sql.Type(nil), m.registry.Finalize.ArgTypes...)
	final.ResultCollation = agg.ResultCollation
	final.InputCollation = agg.InputCollation
	return final, nil
}

// uncoveredColumn returns the first reference to a source column in e that
// is neither inside an aggregate call nor inside one of covered.
func uncoveredColumn(e sql.Expression, covered []sql.Expression) (sql.Expression, bool) {
	var found sql.Expression
	expression.Inspect(e, func(e sql.Expression) bool {
		if e == nil || found != nil {
			return false
		}
		for _, c := range covered {
			if expression.Equal(e, c) {
				return false
			}
		}
		switch e.(type) {
		case *expression.AggregateCall:
			return false
		case *expression.ColumnRef, *expression.WholeRowRef:
			found = e
			return false
		}
		return true
	})
	return found, found != nil
}

// groupedExprs returns the expressions of the target entries named by the
// GROUP BY clause.
func groupedExprs(q *plan.Query) []sql.Expression {
	refs := make(map[int]bool, len(q.GroupClause))
	for _, gc := range q.GroupClause {
		refs[gc.TargetRef] = true
	}

	var exprs []sql.Expression
	for _, tle := range q.TargetList {
		if tle.SortGroupRef > 0 && refs[tle.SortGroupRef] {
			exprs = append(exprs, tle.Expr)
		}
	}
	return exprs
}

func partializeTargetList(ctx *sql.Context, a *Analyzer, s *Scope) error {
	if s.spec == nil {
		return ErrInAnalysis.New("rewrite before validation")
	}

	m := newMatTableColumnInfo(a, s)
	grouped := groupedExprs(s.query)
	final := make([]*plan.TargetEntry, len(s.query.TargetList))
	for i, tle := range s.query.TargetList {
		modte := tle.Copy()

		expr, added, err := partializeAggregates(modte.Expr, m, sql.InvalidOID)
		if err != nil {
			return err
		}

		if added {
			if col, ok := uncoveredColumn(tle.Expr, nil); ok {
				return sql.ErrUnsupportedQueryShape.New("column " + col.String() +
					" must be used in an aggregate function or be a separate output column")
			}
		}

		if !added && !tle.Junk && tle.SortGroupRef == 0 {
			if col, ok := uncoveredColumn(tle.Expr, grouped); ok {
				return sql.ErrUnsupportedQueryShape.New("column " + col.String() +
					" must appear in the GROUP BY clause or be used in an aggregate function")
			}
		}

		if !added && (!tle.Junk || tle.SortGroupRef > 0) {
			ref, err := m.addTargetEntry(modte)
			if err != nil {
				return err
			}
			expr = ref
		}

		modte.Expr = expr
		if ref, ok := expr.(*expression.ColumnRef); ok {
			modte.OrigColumn = ref.Attno()
		}
		final[i] = modte
		a.Log("target %q stored as %s", tle.Name, modte.Expr)
	}

	s.mat = m
	s.finalTargets = final
	return nil
}
