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

package parse

import (
	"strconv"
	"strings"

	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"
)

// column is a column visible through a range table entry.
type column struct {
	name      string
	typ       sql.Type
	typmod    int32
	collation sql.OID
	attno     int
}

// converter turns a parsed statement into a resolved query.
type converter struct {
	cat     sql.Catalog
	q       *plan.Query
	columns map[int][]column
	// inAggregate is set while converting the arguments of an aggregate.
	inAggregate bool
}

func newConverter(cat sql.Catalog) *converter {
	return &converter{
		cat:     cat,
		q:       &plan.Query{Command: plan.CommandSelect, JoinTree: &plan.FromExpr{}},
		columns: make(map[int][]column),
	}
}

func (c *converter) selectStatement(stmt sqlparser.SelectStatement) (*plan.Query, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return c.convertSelect(s)
	case *sqlparser.ParenSelect:
		return c.selectStatement(s.Select)
	case *sqlparser.Union:
		q, err := c.selectStatement(s.Left)
		if err != nil {
			return nil, err
		}
		q.SetOperation = &plan.SetOperation{
			Op:  strings.TrimSuffix(s.Type, " all"),
			All: strings.HasSuffix(s.Type, " all"),
		}
		return q, nil
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(stmt))
	}
}

func (c *converter) convertSelect(s *sqlparser.Select) (*plan.Query, error) {
	for _, te := range s.From {
		item, err := c.tableExpr(te)
		if err != nil {
			return nil, err
		}
		c.q.JoinTree.FromList = append(c.q.JoinTree.FromList, item)
	}

	if s.Where != nil {
		quals, err := c.expr(s.Where.Expr)
		if err != nil {
			return nil, err
		}
		c.q.JoinTree.Quals = quals
	}

	if err := c.targetList(s.SelectExprs); err != nil {
		return nil, err
	}

	for _, g := range s.GroupBy {
		tle, err := c.groupTarget(g)
		if err != nil {
			return nil, err
		}
		clause, err := c.sortGroupClause(tle, false)
		if err != nil {
			return nil, err
		}
		c.q.GroupClause = append(c.q.GroupClause, clause)
	}

	if s.Having != nil {
		having, err := c.expr(s.Having.Expr)
		if err != nil {
			return nil, err
		}
		c.q.Having = having
	}

	for _, o := range s.OrderBy {
		tle, err := c.orderTarget(o.Expr)
		if err != nil {
			return nil, err
		}
		clause, err := c.sortGroupClause(tle, o.Direction == sqlparser.DescScr)
		if err != nil {
			return nil, err
		}
		c.q.SortClause = append(c.q.SortClause, clause)
	}

	if s.Distinct != "" {
		for _, tle := range c.q.TargetList {
			if tle.Junk {
				continue
			}
			clause, err := c.sortGroupClause(tle, false)
			if err != nil {
				return nil, err
			}
			c.q.DistinctClause = append(c.q.DistinctClause, clause)
		}
	}

	if s.Limit != nil {
		if s.Limit.Rowcount != nil {
			count, err := c.expr(s.Limit.Rowcount)
			if err != nil {
				return nil, err
			}
			c.q.LimitCount = count
		}
		if s.Limit.Offset != nil {
			offset, err := c.expr(s.Limit.Offset)
			if err != nil {
				return nil, err
			}
			c.q.LimitOffset = offset
		}
	}

	if s.Lock != "" {
		c.q.HasForUpdate = true
	}

	return c.q, nil
}

func (c *converter) addRangeTableEntry(rte *plan.RangeTableEntry, cols []column) *plan.RangeTableRef {
	c.q.RangeTable = append(c.q.RangeTable, rte)
	index := len(c.q.RangeTable)
	c.columns[index] = cols
	return &plan.RangeTableRef{Index: index}
}

func (c *converter) tableExpr(te sqlparser.TableExpr) (plan.FromItem, error) {
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		alias := strings.ToLower(t.As.String())
		switch e := t.Expr.(type) {
		case sqlparser.TableName:
			schema := strings.ToLower(e.Qualifier.String())
			name := strings.ToLower(e.Name.String())
			rel, ok := c.cat.RelationByName(schema, name)
			if !ok {
				return nil, sql.ErrRelationNotFound.New(name)
			}

			cols := make([]column, len(rel.Columns))
			names := make([]string, len(rel.Columns))
			for i, col := range rel.Columns {
				cols[i] = column{col.Name, col.Type, col.Typmod, col.Collation, col.Attno}
				names[i] = col.Name
			}

			return c.addRangeTableEntry(&plan.RangeTableEntry{
				Kind:     plan.RTERelation,
				RelID:    rel.OID,
				RelKind:  rel.Kind,
				Schema:   rel.Schema,
				Name:     rel.Name,
				Alias:    alias,
				ColNames: names,
				Inh:      true,
			}, cols), nil
		case *sqlparser.Subquery:
			if alias == "" {
				return nil, ErrUnsupportedFeature.New("subquery in FROM must have an alias")
			}

			sub, err := newConverter(c.cat).selectStatement(e.Select)
			if err != nil {
				return nil, err
			}

			var cols []column
			var names []string
			for _, col := range sub.OutputColumns() {
				cols = append(cols, column{col.Name, col.Type, col.Typmod, col.Collation, col.Attno})
				names = append(names, col.Name)
			}

			return c.addRangeTableEntry(&plan.RangeTableEntry{
				Kind:     plan.RTESubquery,
				Alias:    alias,
				ColNames: names,
				Subquery: sqlparser.String(e.Select),
			}, cols), nil
		default:
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(te))
		}
	case *sqlparser.ParenTableExpr:
		if len(t.Exprs) != 1 {
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(te))
		}
		return c.tableExpr(t.Exprs[0])
	case *sqlparser.JoinTableExpr:
		left, err := c.tableExpr(t.LeftExpr)
		if err != nil {
			return nil, err
		}

		right, err := c.tableExpr(t.RightExpr)
		if err != nil {
			return nil, err
		}

		// Join conditions are not resolved: a join is never a valid
		// continuous aggregate source.
		return &plan.JoinExpr{Kind: joinKind(t.Join), Left: left, Right: right}, nil
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(te))
	}
}

func joinKind(join string) plan.JoinKind {
	switch join {
	case sqlparser.LeftJoinStr, sqlparser.NaturalLeftJoinStr:
		return plan.LeftJoin
	case sqlparser.RightJoinStr, sqlparser.NaturalRightJoinStr:
		return plan.RightJoin
	default:
		return plan.InnerJoin
	}
}

func (c *converter) targetList(exprs sqlparser.SelectExprs) error {
	for _, se := range exprs {
		switch e := se.(type) {
		case *sqlparser.StarExpr:
			if err := c.expandStar(strings.ToLower(e.TableName.Name.String())); err != nil {
				return err
			}
		case *sqlparser.AliasedExpr:
			expr, err := c.expr(e.Expr)
			if err != nil {
				return err
			}

			if l, ok := expr.(*expression.Literal); ok && l.Type() == sql.Unknown {
				expr, err = coerceLiteral(l, sql.Text)
				if err != nil {
					return err
				}
			}

			name := e.As.String()
			if name == "" {
				name = targetName(e.Expr)
			}
			c.addTarget(expr, name, false)
		default:
			return ErrUnsupportedSyntax.New(sqlparser.String(se))
		}
	}
	return nil
}

func (c *converter) expandStar(qualifier string) error {
	var found bool
	for i, rte := range c.q.RangeTable {
		if qualifier != "" && rte.RefName() != qualifier {
			continue
		}
		found = true
		for _, col := range c.columns[i+1] {
			ref := expression.NewColumnRef(i+1, col.attno, col.name, col.typ, col.typmod, col.collation)
			c.addTarget(ref, col.name, false)
		}
	}

	if !found {
		if qualifier == "" {
			return ErrUnsupportedFeature.New("SELECT * with no tables specified")
		}
		return sql.ErrRelationNotFound.New(qualifier)
	}
	return nil
}

func (c *converter) addTarget(expr sql.Expression, name string, junk bool) *plan.TargetEntry {
	tle := &plan.TargetEntry{
		Expr:  expr,
		Resno: len(c.q.TargetList) + 1,
		Name:  name,
		Junk:  junk,
	}
	if ref, ok := expr.(*expression.ColumnRef); ok {
		rte := c.q.RangeTable[ref.RelIndex()-1]
		if rte.Kind == plan.RTERelation {
			tle.OrigTable = rte.RelID
			tle.OrigColumn = ref.Attno()
		}
	}
	c.q.TargetList = append(c.q.TargetList, tle)
	return tle
}

// targetName is the name given to an unnamed output column.
func targetName(e sqlparser.Expr) string {
	switch e := e.(type) {
	case *sqlparser.ColName:
		return e.Name.Lowered()
	case *sqlparser.FuncExpr:
		return e.Name.Lowered()
	case *sqlparser.ParenExpr:
		return targetName(e.Expr)
	case *sqlparser.ConvertExpr:
		return targetName(e.Expr)
	}
	return "?column?"
}

// groupTarget returns the target entry a GROUP BY item refers to, adding
// a junk entry when the expression is not in the target list. Input
// columns take precedence over output column names.
func (c *converter) groupTarget(g sqlparser.Expr) (*plan.TargetEntry, error) {
	if tle, ok, err := c.positionalTarget(g); ok || err != nil {
		return tle, err
	}

	expr, err := c.expr(g)
	if err != nil {
		if col, ok := g.(*sqlparser.ColName); ok && ErrColumnNotFound.Is(err) && col.Qualifier.IsEmpty() {
			if tle := c.targetByName(col.Name.Lowered()); tle != nil {
				return tle, nil
			}
		}
		return nil, err
	}

	return c.findOrAddTarget(expr, targetName(g)), nil
}

// orderTarget returns the target entry an ORDER BY item refers to. Output
// column names take precedence over input columns.
func (c *converter) orderTarget(o sqlparser.Expr) (*plan.TargetEntry, error) {
	if tle, ok, err := c.positionalTarget(o); ok || err != nil {
		return tle, err
	}

	if col, ok := o.(*sqlparser.ColName); ok && col.Qualifier.IsEmpty() {
		if tle := c.targetByName(col.Name.Lowered()); tle != nil {
			return tle, nil
		}
	}

	expr, err := c.expr(o)
	if err != nil {
		return nil, err
	}
	return c.findOrAddTarget(expr, targetName(o)), nil
}

func (c *converter) positionalTarget(e sqlparser.Expr) (*plan.TargetEntry, bool, error) {
	v, ok := e.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return nil, false, nil
	}

	pos, err := strconv.Atoi(string(v.Val))
	if err != nil {
		return nil, true, err
	}

	var visible int
	for _, tle := range c.q.TargetList {
		if tle.Junk {
			continue
		}
		visible++
		if visible == pos {
			return tle, true, nil
		}
	}
	return nil, true, ErrUnsupportedSyntax.New("position " + string(v.Val) + " is not in select list")
}

func (c *converter) targetByName(name string) *plan.TargetEntry {
	var found *plan.TargetEntry
	for _, tle := range c.q.TargetList {
		if !tle.Junk && tle.Name == name {
			if found != nil {
				return nil
			}
			found = tle
		}
	}
	return found
}

func (c *converter) findOrAddTarget(expr sql.Expression, name string) *plan.TargetEntry {
	for _, tle := range c.q.TargetList {
		if expression.Equal(tle.Expr, expr) {
			return tle
		}
	}
	return c.addTarget(expr, name, true)
}

// sortGroupClause returns a clause referencing tle, assigning the entry a
// sort/group reference if it has none.
func (c *converter) sortGroupClause(tle *plan.TargetEntry, desc bool) (*plan.SortGroupClause, error) {
	typ := tle.Expr.Type()
	eq, lt, hashable := sql.SortGroupOperators(c.cat, typ)
	if !eq.IsValid() {
		return nil, ErrUnsupportedFeature.New("could not identify an equality operator for type " + typ.Name)
	}

	if tle.SortGroupRef == 0 {
		tle.SortGroupRef = plan.MaxSortGroupRef(c.q.TargetList) + 1
	}

	return &plan.SortGroupClause{
		TargetRef:  tle.SortGroupRef,
		EqOp:       eq,
		SortOp:     lt,
		Descending: desc,
		NullsFirst: desc,
		Hashable:   hashable,
	}, nil
}
