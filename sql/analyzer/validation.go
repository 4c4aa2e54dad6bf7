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
	"time"

	"github.com/spf13/cast"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

const invalidSelect = "invalid SELECT query for continuous aggregate"

func validateQueryShape(ctx *sql.Context, a *Analyzer, s *Scope) error {
	q := s.query
	if q.Command != plan.CommandSelect {
		return sql.ErrUnsupportedQueryShape.New("only SELECT query permitted for continuous aggregate query")
	}

	if q.HasWindowFuncs || q.HasSubLinks || q.HasDistinctOn ||
		q.HasRecursive || q.HasModifyingCTE || q.HasForUpdate ||
		q.HasRowSecurity || q.HasTargetSRFs || len(q.CTEs) > 0 ||
		len(q.GroupingSets) > 0 || len(q.DistinctClause) > 0 ||
		q.SetOperation != nil || q.LimitOffset != nil ||
		q.LimitCount != nil || len(q.SortClause) > 0 {
		return sql.ErrUnsupportedQueryShape.New(invalidSelect)
	}

	if len(q.GroupClause) == 0 {
		return sql.ErrUnsupportedQueryShape.New("SELECT query for continuous aggregate should have at least 1 " +
			"aggregate function and a GROUP BY clause with time_bucket")
	}

	return nil
}

func validateSourceRelation(ctx *sql.Context, a *Analyzer, s *Scope) error {
	q := s.query
	if q.JoinTree == nil || len(q.JoinTree.FromList) != 1 {
		return sql.ErrUnsupportedQueryShape.New("only 1 hypertable is permitted in SELECT query for continuous aggregate")
	}

	ref, ok := q.JoinTree.FromList[0].(*plan.RangeTableRef)
	if !ok || ref.Index < 1 || ref.Index > len(q.RangeTable) {
		return sql.ErrUnsupportedQueryShape.New(invalidSelect)
	}

	rte := q.RangeTable[ref.Index-1]
	if rte.Kind != plan.RTERelation || rte.TableSample || !rte.Inh {
		return sql.ErrUnsupportedQueryShape.New(invalidSelect)
	}

	rel, ok := s.catalog.Relation(rte.RelID)
	if !ok {
		return sql.ErrRelationNotFound.New(rte.Name)
	}

	ht, ok := s.catalog.Hypertable(rte.RelID)
	if !ok {
		return sql.ErrUnsupportedQueryShape.New("can create continuous aggregate only on hypertables")
	}

	if rel.RowSecurity || rel.ForceRowSecurity {
		return sql.ErrUnsupportedQueryShape.New("cannot create continuous aggregate on hypertable with row security")
	}

	a.Log("source hypertable %s has id %d", rel.QualifiedName(), ht.ID)
	s.rtIndex = ref.Index
	s.rte = rte
	s.relation = rel
	s.hypertable = ht
	return nil
}

func validateBucketing(ctx *sql.Context, a *Analyzer, s *Scope) error {
	if s.hypertable == nil {
		return ErrInAnalysis.New("bucketing validated before the source relation")
	}

	q := s.query
	ht := s.hypertable
	var spec *plan.BucketingSpec
	for _, gc := range q.GroupClause {
		tle, ok := q.TargetBySortGroupRef(gc.TargetRef)
		if !ok {
			return ErrInAnalysis.New("GROUP BY references a missing target entry")
		}

		fn, ok := tle.Expr.(*expression.FuncCall)
		if !ok || !s.registry.IsBucketFunc(fn.FuncOID) {
			continue
		}

		if spec != nil {
			return sql.ErrUnsupportedQueryShape.New("multiple time_bucket functions not permitted in continuous aggregate query")
		}

		if len(fn.Args) < 2 {
			return sql.ErrUnsupportedQueryShape.New("time_bucket function for continuous aggregate query cannot use optional arguments")
		}

		col, ok := fn.Args[1].(*expression.ColumnRef)
		if !ok || col.RelIndex() != s.rtIndex || col.Attno() != ht.PartitionColumn {
			return sql.ErrUnsupportedQueryShape.New("time_bucket function for continuous aggregate query should be " +
				"called on the dimension column of the hypertable")
		}

		if len(fn.Args) != 2 {
			return sql.ErrUnsupportedQueryShape.New("time_bucket function for continuous aggregate query cannot use optional arguments")
		}

		width, ok := fn.Args[0].(*expression.Literal)
		if !ok || width.IsNull() {
			return sql.ErrUnsupportedQueryShape.New("first argument to time_bucket function should be a constant for " +
				"continuous aggregate query")
		}

		bucketWidth, err := bucketWidthValue(width)
		if err != nil {
			return err
		}

		spec = &plan.BucketingSpec{
			HypertableID:        ht.ID,
			RelID:               ht.RelID,
			PartitionColumn:     ht.PartitionColumn,
			PartitionColumnName: ht.PartitionColumnName,
			PartitionType:       ht.PartitionType,
			PartitionInterval:   ht.IntervalLength,
			BucketWidth:         bucketWidth,
			SortGroupRef:        tle.SortGroupRef,
		}
	}

	if spec == nil {
		return sql.ErrUnsupportedQueryShape.New("time_bucket function missing from GROUP BY clause for continuous aggregate query")
	}

	a.Log("bucket width is %d", spec.BucketWidth)
	s.spec = spec
	return nil
}

// bucketWidthValue converts the width constant to internal units:
// microseconds for intervals, the value itself for integers.
func bucketWidthValue(l *expression.Literal) (int64, error) {
	var width int64
	switch {
	case l.Type() == sql.Interval:
		d, ok := l.Value().(time.Duration)
		if !ok {
			return 0, sql.ErrInvalidBucketWidth.New(l, "not an interval")
		}
		width = int64(d / time.Microsecond)
	case l.Type().IsInteger():
		v, err := cast.ToInt64E(l.Value())
		if err != nil {
			return 0, sql.ErrInvalidBucketWidth.New(l, err.Error())
		}
		width = v
	default:
		return 0, sql.ErrInvalidBucketWidth.New(l, "unsupported type "+l.Type().Name)
	}

	if width <= 0 {
		return 0, sql.ErrInvalidBucketWidth.New(l, "width must be positive")
	}
	return width, nil
}
