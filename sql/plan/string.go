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
	"fmt"
	"strings"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// String renders the query as SQL.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.DistinctClause) > 0 {
		sb.WriteString("DISTINCT ")
	}

	var targets []string
	for _, t := range q.TargetList {
		if t.Junk {
			continue
		}
		s := t.Expr.String()
		if t.Name != "" && t.Name != s {
			s += " AS " + sql.QuoteIdentifier(t.Name)
		}
		targets = append(targets, s)
	}
	sb.WriteString(strings.Join(targets, ", "))

	if q.JoinTree != nil && len(q.JoinTree.FromList) > 0 {
		items := make([]string, len(q.JoinTree.FromList))
		for i, item := range q.JoinTree.FromList {
			items[i] = q.fromItemString(item)
		}
		sb.WriteString(" FROM ")
		sb.WriteString(strings.Join(items, ", "))
	}

	if q.JoinTree != nil && q.JoinTree.Quals != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.JoinTree.Quals.String())
	}

	if len(q.GroupClause) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(q.clauseStrings(q.GroupClause), ", "))
	}

	if q.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(q.Having.String())
	}

	if len(q.SortClause) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.clauseStrings(q.SortClause), ", "))
	}

	if q.LimitCount != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(q.LimitCount.String())
	}

	if q.LimitOffset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(q.LimitOffset.String())
	}

	return sb.String()
}

func (q *Query) clauseStrings(clauses []*SortGroupClause) []string {
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		t, ok := q.TargetBySortGroupRef(c.TargetRef)
		if !ok {
			out = append(out, fmt.Sprintf("<ref %d>", c.TargetRef))
			continue
		}
		s := t.Expr.String()
		if c.Descending {
			s += " DESC"
		}
		out = append(out, s)
	}
	return out
}

func (q *Query) fromItemString(item FromItem) string {
	switch item := item.(type) {
	case *RangeTableRef:
		if item.Index < 1 || item.Index > len(q.RangeTable) {
			return fmt.Sprintf("<rte %d>", item.Index)
		}
		return rteString(q.RangeTable[item.Index-1])
	case *JoinExpr:
		kind := map[JoinKind]string{
			InnerJoin: "JOIN",
			LeftJoin:  "LEFT JOIN",
			RightJoin: "RIGHT JOIN",
			FullJoin:  "FULL JOIN",
			CrossJoin: "CROSS JOIN",
		}[item.Kind]
		s := fmt.Sprintf("%s %s %s", q.fromItemString(item.Left), kind, q.fromItemString(item.Right))
		if item.Quals != nil {
			s += " ON " + item.Quals.String()
		}
		return s
	default:
		return fmt.Sprintf("%T", item)
	}
}

func rteString(rte *RangeTableEntry) string {
	var s string
	switch rte.Kind {
	case RTESubquery:
		s = "(" + rte.Subquery + ")"
	default:
		s = sql.QuoteIdentifier(rte.Name)
		if rte.Schema != "" {
			s = sql.QuoteIdentifier(rte.Schema) + "." + s
		}
		if !rte.Inh {
			s = "ONLY " + s
		}
	}
	if rte.Alias != "" {
		s += " " + sql.QuoteIdentifier(rte.Alias)
	}
	return s
}
