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

func rewriteHaving(ctx *sql.Context, a *Analyzer, s *Scope) error {
	having := s.query.Having
	if having == nil {
		return nil
	}
	if s.mat == nil {
		return ErrInAnalysis.New("having rewritten before the target list")
	}

	originals := make([]*plan.TargetEntry, 0, len(s.query.TargetList))
	finals := make([]*plan.TargetEntry, 0, len(s.query.TargetList))
	for i, tle := range s.query.TargetList {
		if s.finalTargets[i].Expr != tle.Expr {
			originals = append(originals, tle)
			finals = append(finals, s.finalTargets[i])
		}
	}

	covered := make([]sql.Expression, len(originals))
	for i, tle := range originals {
		covered[i] = tle.Expr
	}
	if col, ok := uncoveredColumn(having, covered); ok {
		return sql.ErrUnsupportedQueryShape.New("column " + col.String() +
			" must appear in the GROUP BY clause or be used in an aggregate function")
	}

	having, _, err := transform.ExprDown(having, func(e sql.Expression) (sql.Expression, transform.TreeIdentity, error) {
		for i, tle := range originals {
			if expression.Equal(e, tle.Expr) {
				return finals[i].Expr, transform.NewTree, nil
			}
		}
		return e, transform.SameTree, nil
	})
	if err != nil {
		return err
	}

	before := len(s.mat.columns)
	having, _, err = partializeAggregates(having, s.mat, s.registry.Finalize.OID)
	if err != nil {
		return err
	}

	a.Log("having rewritten to %s, %d columns added", having, len(s.mat.columns)-before)
	s.having = having
	return nil
}
