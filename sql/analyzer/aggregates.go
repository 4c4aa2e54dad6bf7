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
)

func validateAggregates(ctx *sql.Context, a *Analyzer, s *Scope) error {
	exprs := make([]sql.Expression, 0, len(s.query.TargetList)+1)
	for _, t := range s.query.TargetList {
		exprs = append(exprs, t.Expr)
	}
	if s.query.Having != nil {
		exprs = append(exprs, s.query.Having)
	}

	for _, e := range exprs {
		var err error
		expression.Inspect(e, func(e sql.Expression) bool {
			if err != nil {
				return false
			}
			if agg, ok := e.(*expression.AggregateCall); ok {
				err = checkAggregate(s.catalog, agg)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// checkAggregate reports whether the aggregate can be computed in two
// steps: a serializable partial state and a combine step.
func checkAggregate(aggs sql.AggregateLookup, agg *expression.AggregateCall) error {
	if len(agg.OrderBy) > 0 || agg.Distinct || agg.Filter != nil {
		return sql.ErrUnsupportedAggregate.New(agg.Name, "aggregates with FILTER / DISTINCT / ORDER BY are not supported")
	}

	info, ok := aggs.Aggregate(agg.FuncOID)
	if !ok {
		return sql.ErrAggregateNotFound.New(agg.Name)
	}

	if info.Kind != sql.NormalAggregate {
		return sql.ErrUnsupportedAggregate.New(agg.Name, "ordered set/hypothetical aggregates are not supported")
	}

	if !info.CombineFunc.IsValid() ||
		(info.TransType == sql.Internal && !info.DeserialFunc.IsValid()) {
		return sql.ErrUnsupportedAggregate.New(agg.Name, "aggregates which are not parallelizable are not supported")
	}

	return nil
}
