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

package plan

import (
	"gopkg.in/src-d/go-cagg.v0/sql"
)

// CommandType is the kind of statement a Query represents.
type CommandType int

const (
	CommandSelect CommandType = iota
	CommandInsert
	CommandUpdate
	CommandDelete
	CommandUtility
)

func (c CommandType) String() string {
	switch c {
	case CommandSelect:
		return "SELECT"
	case CommandInsert:
		return "INSERT"
	case CommandUpdate:
		return "UPDATE"
	case CommandDelete:
		return "DELETE"
	default:
		return "UTILITY"
	}
}

// RTEKind is the kind of a range table entry.
type RTEKind int

const (
	RTERelation RTEKind = iota
	RTESubquery
	RTEJoin
	RTEFunction
	RTEValues
)

// RangeTableEntry is a relation, subquery or join referenced by a query.
type RangeTableEntry struct {
	Kind    RTEKind
	RelID   sql.OID
	RelKind sql.RelationKind
	Schema  string
	Name    string
	Alias   string
	// ColNames are the column names visible through this entry.
	ColNames []string
	// Inh is false for ONLY references.
	Inh         bool
	TableSample bool
	// Subquery holds the text of a subquery entry.
	Subquery string
}

// RefName is the name other parts of the query use for the entry.
func (r *RangeTableEntry) RefName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// FromItem is an item of a FROM list.
type FromItem interface {
	fromItem()
}

// RangeTableRef references a range table entry by its 1-based index.
type RangeTableRef struct {
	Index int
}

// JoinKind is the kind of a join.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

// JoinExpr joins two from items.
type JoinExpr struct {
	Kind  JoinKind
	Left  FromItem
	Right FromItem
	Quals sql.Expression
}

func (*RangeTableRef) fromItem() {}
func (*JoinExpr) fromItem()      {}

// FromExpr is the FROM list and WHERE predicate of a query.
type FromExpr struct {
	FromList []FromItem
	Quals    sql.Expression
}

// TargetEntry is one element of a target list.
type TargetEntry struct {
	Expr sql.Expression
	// Resno is the 1-based position of the entry.
	Resno int
	Name  string
	// SortGroupRef is non-zero when a GROUP BY, ORDER BY or DISTINCT clause
	// references this entry.
	SortGroupRef int
	// Junk entries are computed but not returned.
	Junk       bool
	OrigTable  sql.OID
	OrigColumn int
}

// Copy returns a shallow copy of the entry. Expressions are immutable and
// shared.
func (t *TargetEntry) Copy() *TargetEntry {
	nt := *t
	return &nt
}

// SortGroupClause references a target entry from GROUP BY, ORDER BY or
// DISTINCT.
type SortGroupClause struct {
	TargetRef  int
	EqOp       sql.OID
	SortOp     sql.OID
	Descending bool
	NullsFirst bool
	Hashable   bool
}

// SetOperation is a UNION, INTERSECT or EXCEPT.
type SetOperation struct {
	Op  string
	All bool
}

// CommonTableExpr is a WITH list entry.
type CommonTableExpr struct {
	Name  string
	Query string
}

// Query is an analyzed query.
type Query struct {
	Command        CommandType
	RangeTable     []*RangeTableEntry
	JoinTree       *FromExpr
	TargetList     []*TargetEntry
	GroupClause    []*SortGroupClause
	GroupingSets   [][]int
	Having         sql.Expression
	SortClause     []*SortGroupClause
	DistinctClause []*SortGroupClause
	LimitCount     sql.Expression
	LimitOffset    sql.Expression
	CTEs           []*CommonTableExpr
	SetOperation   *SetOperation

	HasAggs         bool
	HasWindowFuncs  bool
	HasTargetSRFs   bool
	HasSubLinks     bool
	HasDistinctOn   bool
	HasRecursive    bool
	HasModifyingCTE bool
	HasForUpdate    bool
	HasRowSecurity  bool
}

// Copy returns a copy of the query that can be modified without affecting
// the original. Expressions are immutable and shared.
func (q *Query) Copy() *Query {
	nq := *q

	nq.RangeTable = make([]*RangeTableEntry, len(q.RangeTable))
	for i, rte := range q.RangeTable {
		nr := *rte
		nr.ColNames = append([]string(nil), rte.ColNames...)
		nq.RangeTable[i] = &nr
	}

	if q.JoinTree != nil {
		nq.JoinTree = &FromExpr{
			FromList: copyFromList(q.JoinTree.FromList),
			Quals:    q.JoinTree.Quals,
		}
	}

	nq.TargetList = make([]*TargetEntry, len(q.TargetList))
	for i, t := range q.TargetList {
		nq.TargetList[i] = t.Copy()
	}

	nq.GroupClause = copyClauses(q.GroupClause)
	nq.SortClause = copyClauses(q.SortClause)
	nq.DistinctClause = copyClauses(q.DistinctClause)

	if q.GroupingSets != nil {
		nq.GroupingSets = make([][]int, len(q.GroupingSets))
		for i, set := range q.GroupingSets {
			nq.GroupingSets[i] = append([]int(nil), set...)
		}
	}

	if q.CTEs != nil {
		nq.CTEs = make([]*CommonTableExpr, len(q.CTEs))
		for i, c := range q.CTEs {
			nc := *c
			nq.CTEs[i] = &nc
		}
	}

	if q.SetOperation != nil {
		op := *q.SetOperation
		nq.SetOperation = &op
	}

	return &nq
}

func copyFromList(items []FromItem) []FromItem {
	if items == nil {
		return nil
	}
	out := make([]FromItem, len(items))
	for i, item := range items {
		out[i] = copyFromItem(item)
	}
	return out
}

func copyFromItem(item FromItem) FromItem {
	switch item := item.(type) {
	case *RangeTableRef:
		return &RangeTableRef{Index: item.Index}
	case *JoinExpr:
		return &JoinExpr{
			Kind:  item.Kind,
			Left:  copyFromItem(item.Left),
			Right: copyFromItem(item.Right),
			Quals: item.Quals,
		}
	default:
		return item
	}
}

func copyClauses(clauses []*SortGroupClause) []*SortGroupClause {
	if clauses == nil {
		return nil
	}
	out := make([]*SortGroupClause, len(clauses))
	for i, c := range clauses {
		nc := *c
		out[i] = &nc
	}
	return out
}

// TargetBySortGroupRef returns the target entry a clause refers to.
func (q *Query) TargetBySortGroupRef(ref int) (*TargetEntry, bool) {
	return TargetBySortGroupRef(q.TargetList, ref)
}

// TargetBySortGroupRef returns the entry of the target list with the given
// sort/group reference.
func TargetBySortGroupRef(targets []*TargetEntry, ref int) (*TargetEntry, bool) {
	if ref <= 0 {
		return nil, false
	}
	for _, t := range targets {
		if t.SortGroupRef == ref {
			return t, true
		}
	}
	return nil, false
}

// MaxSortGroupRef returns the highest sort/group reference in use.
func MaxSortGroupRef(targets []*TargetEntry) int {
	var max int
	for _, t := range targets {
		if t.SortGroupRef > max {
			max = t.SortGroupRef
		}
	}
	return max
}

// OutputColumns returns the visible columns produced by the query.
func (q *Query) OutputColumns() []*sql.Column {
	var cols []*sql.Column
	for _, t := range q.TargetList {
		if t.Junk {
			continue
		}
		cols = append(cols, &sql.Column{
			Name:      t.Name,
			Type:      t.Expr.Type(),
			Typmod:    t.Expr.Typmod(),
			Collation: t.Expr.Collation(),
			Attno:     len(cols) + 1,
			Nullable:  true,
		})
	}
	return cols
}
