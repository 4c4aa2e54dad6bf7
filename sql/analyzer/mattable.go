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
	"fmt"

	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

// matTableColumnInfo accumulates the columns of the materialization table
// along with the projections of the populate query computing them. Both
// lists always have the same length.
type matTableColumnInfo struct {
	a         *Analyzer
	catalog   sql.Catalog
	registry  *Registry
	// bucketRef is the sort/group reference of the time_bucket entry.
	bucketRef int

	columns         []plan.MaterializationColumn
	partialTargets  []*plan.TargetEntry
	partitionColumn int
	aggregates      map[uint64]string
}

func newMatTableColumnInfo(a *Analyzer, s *Scope) *matTableColumnInfo {
	return &matTableColumnInfo{
		a:               a,
		catalog:         s.catalog,
		registry:        s.registry,
		bucketRef:       s.spec.SortGroupRef,
		partitionColumn: -1,
		aggregates:      make(map[uint64]string),
	}
}

func (m *matTableColumnInfo) nextColumn() int {
	return len(m.columns) + 1
}

func (m *matTableColumnInfo) checkImmutable(e sql.Expression) error {
	if name, ok := expression.FirstMutable(e, m.catalog); ok {
		return sql.ErrNonDeterministicExpression.New(name)
	}
	return nil
}

func (m *matTableColumnInfo) add(col plan.MaterializationColumn, partial *plan.TargetEntry) *expression.ColumnRef {
	m.columns = append(m.columns, col)
	m.partialTargets = append(m.partialTargets, partial)
	return expression.NewColumnRef(1, len(m.columns), col.Name, col.Type, col.Typmod, col.Collation)
}

// addAggregateEntry adds a column storing the partial state of agg and
// returns a reference to it.
func (m *matTableColumnInfo) addAggregateEntry(agg *expression.AggregateCall) (*expression.ColumnRef, error) {
	if err := m.checkImmutable(agg); err != nil {
		return nil, err
	}

	matcolno := m.nextColumn()
	name := fmt.Sprintf("%s%d", matColumnPrefix, matcolno)

	if h, err := expression.Hash(agg); err == nil {
		if prev, ok := m.aggregates[h]; ok {
			m.a.Log("aggregate %s is already stored in column %s, storing it again in %s", agg, prev, name)
		} else {
			m.aggregates[h] = name
		}
	}

	partial := expression.NewFuncCall(m.registry.Partialize, sql.Bytea, agg)
	partial.ResultCollation = sql.InvalidOID
	partial.InputCollation = sql.InvalidOID

	col := plan.MaterializationColumn{
		Name:      name,
		Type:      sql.Bytea,
		Typmod:    -1,
		Collation: sql.InvalidOID,
		Role:      plan.RolePartialState,
	}
	return m.add(col, &plan.TargetEntry{Expr: partial, Resno: matcolno, Name: name}), nil
}

// addTargetEntry adds a column storing the value of a non-aggregated
// target entry and returns a reference to it.
func (m *matTableColumnInfo) addTargetEntry(tle *plan.TargetEntry) (*expression.ColumnRef, error) {
	if err := m.checkImmutable(tle.Expr); err != nil {
		return nil, err
	}

	matcolno := m.nextColumn()
	name := tle.Name
	if name == "" {
		name = fmt.Sprintf("%s%d", matColumnPrefix, matcolno)
	}

	role := plan.RolePlain
	if fn, ok := tle.Expr.(*expression.FuncCall); ok && m.registry.IsBucketFunc(fn.FuncOID) &&
		tle.SortGroupRef == m.bucketRef && m.partitionColumn < 0 {
		name = PartitionColumnName
		role = plan.RolePartitionBucket
		m.partitionColumn = matcolno - 1
	}

	partial := tle.Copy()
	partial.Resno = matcolno
	partial.Name = name
	partial.Junk = false

	col := plan.MaterializationColumn{
		Name:      name,
		Type:      tle.Expr.Type(),
		Typmod:    tle.Expr.Typmod(),
		Collation: tle.Expr.Collation(),
		Role:      role,
	}
	return m.add(col, partial), nil
}

// addInternal adds the chunk locator column, computed from the whole row of
// the source relation, and the group clause it needs in the populate
// query.
func (m *matTableColumnInfo) addInternal(ops sql.OperatorLookup, rtIndex int, rte *plan.RangeTableEntry, hypertableID int32) (*plan.SortGroupClause, error) {
	eq, lt, hashable := sql.SortGroupOperators(ops, sql.Int32)
	if !eq.IsValid() {
		return nil, sql.ErrInternal.New("no equality operator for " + sql.Int32.Name)
	}

	matcolno := m.nextColumn()
	locator := expression.NewFuncCall(
		m.registry.ChunkForTuple,
		sql.Int32,
		expression.NewLiteral(int64(hypertableID), sql.Int32),
		expression.NewWholeRowRef(rtIndex, rte.RefName()),
	)

	ref := plan.MaxSortGroupRef(m.partialTargets) + 1
	m.add(plan.MaterializationColumn{
		Name:      ChunkIDColumnName,
		Type:      sql.Int32,
		Typmod:    -1,
		Collation: sql.InvalidOID,
		Role:      plan.RoleChunkLocator,
	}, &plan.TargetEntry{
		Expr:         locator,
		Resno:        matcolno,
		Name:         ChunkIDColumnName,
		SortGroupRef: ref,
	})

	return &plan.SortGroupClause{
		TargetRef: ref,
		EqOp:      eq,
		SortOp:    lt,
		Hashable:  hashable,
	}, nil
}
