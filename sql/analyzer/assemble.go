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

	"github.com/mitchellh/hashstructure"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

func addInternalColumns(ctx *sql.Context, a *Analyzer, s *Scope) error {
	if s.mat == nil {
		return ErrInAnalysis.New("internal columns added before the target list")
	}

	clause, err := s.mat.addInternal(s.catalog, s.rtIndex, s.rte, s.hypertable.ID)
	if err != nil {
		return err
	}

	s.locator = clause
	return nil
}

func assembleQueries(ctx *sql.Context, a *Analyzer, s *Scope) error {
	m := s.mat
	if m == nil || s.locator == nil {
		return ErrInAnalysis.New("queries assembled before the rewrite")
	}
	if m.partitionColumn < 0 {
		return sql.ErrInternal.New("time_bucket column missing from the materialization table")
	}

	viewSchema := s.view.Schema
	if viewSchema == "" {
		viewSchema = sql.PublicSchema
	}

	matName := fmt.Sprintf(matTableNameFormat, s.view.Name)
	partialName := fmt.Sprintf(partialViewNameFormat, s.view.Name)
	for _, name := range []string{matName, partialName} {
		if len(name) > plan.MaxNameLength {
			return sql.ErrInternal.New("bad materialization internal name " + name)
		}
	}

	populate := populateQuery(s)
	view, err := viewQuery(s, matName)
	if err != nil {
		return err
	}

	fingerprint, err := queryFingerprint(s.query)
	if err != nil {
		return err
	}

	a.LogQuery("populate", populate)
	a.LogQuery("view", view)

	s.result = &plan.Materialization{
		Spec:              *s.spec,
		Columns:           append([]plan.MaterializationColumn(nil), m.columns...),
		PartitionColumn:   m.partitionColumn,
		PopulateQuery:     populate,
		ViewQuery:         view,
		SourceQuery:       s.query,
		UserViewSchema:    viewSchema,
		UserViewName:      s.view.Name,
		MatTableSchema:    sql.InternalSchema,
		MatTableName:      matName,
		PartialViewSchema: sql.InternalSchema,
		PartialViewName:   partialName,
		Fingerprint:       fingerprint,
	}
	return nil
}

// populateQuery computes every materialization column from the source
// relation, grouped by the original grouping and the chunk locator.
func populateQuery(s *Scope) *plan.Query {
	q := s.query.Copy()

	q.TargetList = make([]*plan.TargetEntry, len(s.mat.partialTargets))
	for i, t := range s.mat.partialTargets {
		q.TargetList[i] = t.Copy()
	}

	locator := *s.locator
	q.GroupClause = append(q.GroupClause, &locator)
	q.Having = nil
	q.SortClause = nil
	q.HasAggs = true
	q.HasRowSecurity = false
	return q
}

// viewQuery finalizes the partial states stored in the materialization
// table into the result of the original query.
func viewQuery(s *Scope, matName string) (*plan.Query, error) {
	colNames := make([]string, len(s.mat.columns))
	for i, c := range s.mat.columns {
		colNames[i] = c.Name
	}

	orig := s.query.Copy()
	q := &plan.Query{
		Command: plan.CommandSelect,
		RangeTable: []*plan.RangeTableEntry{{
			Kind:     plan.RTERelation,
			RelKind:  sql.TableRelation,
			Schema:   sql.InternalSchema,
			Name:     matName,
			ColNames: colNames,
			Inh:      true,
		}},
		JoinTree: &plan.FromExpr{
			FromList: []plan.FromItem{&plan.RangeTableRef{Index: 1}},
		},
		GroupClause: orig.GroupClause,
		SortClause:  orig.SortClause,
		Having:      s.having,
		HasAggs:     true,
	}

	q.TargetList = make([]*plan.TargetEntry, len(s.finalTargets))
	for i, t := range s.finalTargets {
		q.TargetList[i] = t.Copy()
		// OrigTable is known once the materialization table exists.
		q.TargetList[i].OrigTable = sql.InvalidOID
		if _, ok := t.Expr.(*expression.ColumnRef); !ok {
			q.TargetList[i].OrigColumn = 0
		}
	}

	aliases := s.view.Aliases
	var visible int
	for _, t := range q.TargetList {
		if t.Junk {
			continue
		}
		if visible < len(aliases) {
			t.Name = aliases[visible]
		}
		visible++
	}
	if len(aliases) > visible {
		return nil, sql.ErrNamingError.New("too many column names were specified")
	}

	return q, nil
}

type fingerprint struct {
	Query   string
	Targets []uint64
	Having  uint64
}

func queryFingerprint(q *plan.Query) (uint64, error) {
	fp := fingerprint{Query: q.String()}
	for _, t := range q.TargetList {
		h, err := expression.Hash(t.Expr)
		if err != nil {
			return 0, err
		}
		fp.Targets = append(fp.Targets, h)
	}

	h, err := expression.Hash(q.Having)
	if err != nil {
		return 0, err
	}
	fp.Having = h

	return hashstructure.Hash(fp, nil)
}
