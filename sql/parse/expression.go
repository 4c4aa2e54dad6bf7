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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/src-d/go-cagg.v0/internal/similartext"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func (c *converter) expr(e sqlparser.Expr) (sql.Expression, error) {
	switch v := e.(type) {
	case *sqlparser.SQLVal:
		return sqlValToLiteral(v)
	case *sqlparser.NullVal:
		return expression.NewNullLiteral(sql.Unknown, sql.InvalidOID), nil
	case sqlparser.BoolVal:
		return expression.NewLiteral(bool(v), sql.Boolean), nil
	case *sqlparser.ColName:
		return c.columnRef(v)
	case *sqlparser.ParenExpr:
		return c.expr(v.Expr)
	case *sqlparser.AndExpr:
		left, right, err := c.booleanPair(v.Left, v.Right)
		if err != nil {
			return nil, err
		}
		return expression.NewAnd(left, right), nil
	case *sqlparser.OrExpr:
		left, right, err := c.booleanPair(v.Left, v.Right)
		if err != nil {
			return nil, err
		}
		return expression.NewOr(left, right), nil
	case *sqlparser.NotExpr:
		child, err := c.boolean(v.Expr)
		if err != nil {
			return nil, err
		}
		return expression.NewNot(child), nil
	case *sqlparser.ComparisonExpr:
		return c.comparison(v)
	case *sqlparser.BinaryExpr:
		left, right, err := c.pair(v.Left, v.Right)
		if err != nil {
			return nil, err
		}
		return c.operator(v.Operator, left, right)
	case *sqlparser.UnaryExpr:
		return c.unary(v)
	case *sqlparser.RangeCond:
		return c.between(v)
	case *sqlparser.IsExpr:
		child, err := c.expr(v.Expr)
		if err != nil {
			return nil, err
		}
		switch v.Operator {
		case sqlparser.IsNullStr:
			return expression.NewIsNull(child, false), nil
		case sqlparser.IsNotNullStr:
			return expression.NewIsNull(child, true), nil
		default:
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(e))
		}
	case *sqlparser.IntervalExpr:
		return intervalLiteral(v)
	case *sqlparser.ConvertExpr:
		return c.convert(v)
	case *sqlparser.FuncExpr:
		return c.function(v)
	case *sqlparser.Subquery:
		return c.subquery(v)
	case *sqlparser.ExistsExpr:
		if _, err := c.subquery(v.Subquery); err != nil {
			return nil, err
		}
		return expression.NewSubquery(sqlparser.String(v.Subquery.Select), sql.Boolean), nil
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(e))
	}
}

func (c *converter) pair(l, r sqlparser.Expr) (sql.Expression, sql.Expression, error) {
	left, err := c.expr(l)
	if err != nil {
		return nil, nil, err
	}
	right, err := c.expr(r)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (c *converter) boolean(e sqlparser.Expr) (sql.Expression, error) {
	expr, err := c.expr(e)
	if err != nil {
		return nil, err
	}
	return coerce(expr, sql.Boolean)
}

func (c *converter) booleanPair(l, r sqlparser.Expr) (sql.Expression, sql.Expression, error) {
	left, err := c.boolean(l)
	if err != nil {
		return nil, nil, err
	}
	right, err := c.boolean(r)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func sqlValToLiteral(v *sqlparser.SQLVal) (sql.Expression, error) {
	switch v.Type {
	case sqlparser.StrVal:
		return expression.NewLiteral(string(v.Val), sql.Unknown), nil
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(string(v.Val), 64)
			if ferr != nil {
				return nil, err
			}
			return expression.NewLiteral(f, sql.Numeric), nil
		}
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return expression.NewLiteral(n, sql.Int32), nil
		}
		return expression.NewLiteral(n, sql.Int64), nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return nil, err
		}
		return expression.NewLiteral(f, sql.Numeric), nil
	default:
		return nil, ErrInvalidSQLValType.New(v.Type)
	}
}

// intervalLiteral converts INTERVAL <n> <unit> into an interval constant.
func intervalLiteral(v *sqlparser.IntervalExpr) (sql.Expression, error) {
	val, ok := v.Expr.(*sqlparser.SQLVal)
	if !ok {
		return nil, ErrUnsupportedFeature.New("non constant interval " + sqlparser.String(v))
	}

	text := string(val.Val)
	if v.Unit != "" {
		text += " " + strings.ToLower(v.Unit)
	}

	d, err := sql.ParseInterval(text)
	if err != nil {
		return nil, err
	}
	return expression.NewLiteral(d, sql.Interval), nil
}

func (c *converter) columnRef(col *sqlparser.ColName) (sql.Expression, error) {
	name := col.Name.Lowered()
	qualifier := strings.ToLower(col.Qualifier.Name.String())

	var found sql.Expression
	for i, rte := range c.q.RangeTable {
		if qualifier != "" && rte.RefName() != qualifier {
			continue
		}
		for _, column := range c.columns[i+1] {
			if column.name != name {
				continue
			}
			if found != nil {
				return nil, ErrAmbiguousColumn.New(name)
			}
			found = expression.NewColumnRef(i+1, column.attno, column.name, column.typ, column.typmod, column.collation)
		}
	}

	if found != nil {
		return found, nil
	}

	// A bare relation name is a reference to the whole row.
	if qualifier == "" {
		for i, rte := range c.q.RangeTable {
			if rte.RefName() == name {
				return expression.NewWholeRowRef(i+1, name), nil
			}
		}
	}

	var candidates []string
	for i, rte := range c.q.RangeTable {
		if qualifier != "" && rte.RefName() != qualifier {
			continue
		}
		for _, column := range c.columns[i+1] {
			candidates = append(candidates, column.name)
		}
	}
	hint := similartext.Find(candidates, name)

	if qualifier != "" {
		name = qualifier + "." + name
	}
	return nil, ErrColumnNotFound.New(name, hint)
}

func (c *converter) comparison(v *sqlparser.ComparisonExpr) (sql.Expression, error) {
	left, err := c.expr(v.Left)
	if err != nil {
		return nil, err
	}

	switch v.Operator {
	case sqlparser.InStr, sqlparser.NotInStr:
		return c.in(left, v.Right, v.Operator == sqlparser.NotInStr)
	case sqlparser.LikeStr:
		return c.binaryOperator("~~", left, v.Right)
	case sqlparser.NotLikeStr:
		return c.binaryOperator("!~~", left, v.Right)
	case sqlparser.NotEqualStr:
		return c.binaryOperator("<>", left, v.Right)
	case sqlparser.EqualStr, sqlparser.LessThanStr, sqlparser.GreaterThanStr,
		sqlparser.LessEqualStr, sqlparser.GreaterEqualStr:
		return c.binaryOperator(v.Operator, left, v.Right)
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(v))
	}
}

func (c *converter) binaryOperator(op string, left sql.Expression, r sqlparser.Expr) (sql.Expression, error) {
	right, err := c.expr(r)
	if err != nil {
		return nil, err
	}
	return c.operator(op, left, right)
}

func (c *converter) in(left sql.Expression, r sqlparser.Expr, negated bool) (sql.Expression, error) {
	switch r := r.(type) {
	case sqlparser.ValTuple:
		op := "="
		if negated {
			op = "<>"
		}

		var result sql.Expression
		for _, item := range r {
			cmp, err := c.binaryOperator(op, left, item)
			if err != nil {
				return nil, err
			}
			switch {
			case result == nil:
				result = cmp
			case negated:
				result = expression.NewAnd(result, cmp)
			default:
				result = expression.NewOr(result, cmp)
			}
		}
		return result, nil
	case *sqlparser.Subquery:
		if _, err := c.subquery(r); err != nil {
			return nil, err
		}
		var result sql.Expression = expression.NewSubquery(sqlparser.String(r.Select), sql.Boolean)
		if negated {
			result = expression.NewNot(result)
		}
		return result, nil
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(r))
	}
}

func (c *converter) between(v *sqlparser.RangeCond) (sql.Expression, error) {
	left, err := c.expr(v.Left)
	if err != nil {
		return nil, err
	}

	lowOp, highOp := ">=", "<="
	if v.Operator == sqlparser.NotBetweenStr {
		lowOp, highOp = "<", ">"
	}

	low, err := c.binaryOperator(lowOp, left, v.From)
	if err != nil {
		return nil, err
	}
	high, err := c.binaryOperator(highOp, left, v.To)
	if err != nil {
		return nil, err
	}

	if v.Operator == sqlparser.NotBetweenStr {
		return expression.NewOr(low, high), nil
	}
	return expression.NewAnd(low, high), nil
}

func (c *converter) unary(v *sqlparser.UnaryExpr) (sql.Expression, error) {
	child, err := c.expr(v.Expr)
	if err != nil {
		return nil, err
	}

	switch v.Operator {
	case sqlparser.UPlusStr:
		return child, nil
	case sqlparser.UMinusStr:
		if l, ok := child.(*expression.Literal); ok {
			switch n := l.Value().(type) {
			case int64:
				return expression.NewLiteral(-n, l.Type()), nil
			case float64:
				return expression.NewLiteral(-n, l.Type()), nil
			}
		}
		return c.operator("-", expression.NewLiteral(int64(0), sql.Int32), child)
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(v))
	}
}

func (c *converter) subquery(s *sqlparser.Subquery) (sql.Expression, error) {
	sub, err := newConverter(c.cat).selectStatement(s.Select)
	if err != nil {
		return nil, err
	}
	c.q.HasSubLinks = true

	typ := sql.Record
	if cols := sub.OutputColumns(); len(cols) == 1 {
		typ = cols[0].Type
	}
	return expression.NewSubquery(sqlparser.String(s.Select), typ), nil
}

func (c *converter) convert(v *sqlparser.ConvertExpr) (sql.Expression, error) {
	child, err := c.expr(v.Expr)
	if err != nil {
		return nil, err
	}

	typ, err := convertType(v.Type.Type)
	if err != nil {
		return nil, err
	}

	if child.Type() == typ {
		return child, nil
	}
	if l, ok := child.(*expression.Literal); ok {
		return coerceLiteral(l, typ)
	}
	return expression.NewCast(child, typ), nil
}

// convertType maps the type names accepted by CAST to catalog types.
func convertType(name string) (sql.Type, error) {
	switch strings.ToLower(name) {
	case "signed", "signed integer", "unsigned", "unsigned integer":
		return sql.Int64, nil
	case "decimal":
		return sql.Numeric, nil
	case "char", "nchar":
		return sql.Text, nil
	case "datetime":
		return sql.Timestamp, nil
	case "binary":
		return sql.Bytea, nil
	default:
		return sql.TypeByName(name)
	}
}

func (c *converter) function(f *sqlparser.FuncExpr) (sql.Expression, error) {
	name := f.Name.Lowered()
	schema := strings.ToLower(f.Qualifier.String())

	candidates := c.cat.FunctionsByName(schema, name)
	if len(candidates) == 0 {
		return nil, sql.ErrFunctionNotFound.New(name)
	}

	isAggregate := candidates[0].Kind == sql.AggregateFunction
	if isAggregate && c.inAggregate {
		return nil, ErrUnsupportedFeature.New("aggregate function calls cannot be nested")
	}

	if isAggregate {
		prev := c.inAggregate
		c.inAggregate = true
		defer func() { c.inAggregate = prev }()
	}

	var star bool
	var args []sql.Expression
	for _, se := range f.Exprs {
		switch se := se.(type) {
		case *sqlparser.StarExpr:
			if !isAggregate || len(f.Exprs) != 1 {
				return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
			}
			star = true
		case *sqlparser.AliasedExpr:
			arg, err := c.expr(se.Expr)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		default:
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
		}
	}

	fn, args, resultType, err := resolveFunction(name, candidates, args)
	if err != nil {
		return nil, err
	}

	if fn.Kind != sql.AggregateFunction {
		if f.Distinct {
			return nil, ErrUnsupportedSyntax.New(fmt.Sprintf("DISTINCT specified, but %s is not an aggregate function", name))
		}
		if fn.Kind == sql.WindowFunction {
			c.q.HasWindowFuncs = true
		}
		return expression.NewFuncCall(fn, resultType, args...), nil
	}

	agg := expression.NewAggregateCall(fn, resultType, args...)
	agg.ArgTypes = append([]sql.Type(nil), fn.ArgTypes...)
	agg.Distinct = f.Distinct
	agg.Star = star
	c.q.HasAggs = true
	return agg, nil
}

// resolveFunction picks the overload that best matches the argument types
// and coerces the arguments to it. Exact matches are preferred over
// polymorphic parameters, which are preferred over implicit coercions.
func resolveFunction(name string, candidates []*sql.Function, args []sql.Expression) (*sql.Function, []sql.Expression, sql.Type, error) {
	var best *sql.Function
	bestScore := -1
	for _, fn := range candidates {
		if len(fn.ArgTypes) != len(args) {
			continue
		}
		score, ok := matchArgs(fn.ArgTypes, args)
		if ok && score > bestScore {
			best, bestScore = fn, score
		}
	}

	if best == nil {
		types := make([]string, len(args))
		for i, a := range args {
			types[i] = a.Type().Name
		}
		return nil, nil, sql.Type{}, sql.ErrFunctionNotFound.New(fmt.Sprintf("%s(%s)", name, strings.Join(types, ", ")))
	}

	coerced := make([]sql.Expression, len(args))
	resultType := best.ReturnType
	for i, a := range args {
		arg, err := coerce(a, best.ArgTypes[i])
		if err != nil {
			return nil, nil, sql.Type{}, err
		}
		coerced[i] = arg
		if best.ArgTypes[i] == sql.AnyElement && best.ReturnType == sql.AnyElement {
			resultType = arg.Type()
		}
	}

	return best, coerced, resultType, nil
}

func (c *converter) operator(name string, left, right sql.Expression) (sql.Expression, error) {
	if isUnknownLiteral(left) && isUnknownLiteral(right) {
		var err error
		if left, err = coerce(left, sql.Text); err != nil {
			return nil, err
		}
		if right, err = coerce(right, sql.Text); err != nil {
			return nil, err
		}
	}

	args := []sql.Expression{left, right}
	var best *sql.Operator
	bestScore := -1
	for _, op := range c.cat.OperatorsByName(name) {
		score, ok := matchArgs([]sql.Type{op.Left, op.Right}, args)
		if ok && score > bestScore {
			best, bestScore = op, score
		}
	}

	if best == nil {
		return nil, ErrOperatorNotFound.New(left.Type().Name, name, right.Type().Name)
	}

	l, err := coerce(left, best.Left)
	if err != nil {
		return nil, err
	}
	r, err := coerce(right, best.Right)
	if err != nil {
		return nil, err
	}
	return expression.NewOpExpr(best, l, r), nil
}

func matchArgs(params []sql.Type, args []sql.Expression) (int, bool) {
	var total int
	for i, a := range args {
		score, ok := argScore(a, params[i])
		if !ok {
			return 0, false
		}
		total += score
	}
	return total, true
}

func argScore(arg sql.Expression, param sql.Type) (int, bool) {
	typ := arg.Type()
	switch {
	case typ == param:
		return 2, true
	case param.IsPolymorphic():
		return 1, true
	case isUnknownLiteral(arg):
		if _, err := coerceLiteral(arg.(*expression.Literal), param); err != nil {
			return 0, false
		}
		return 1, true
	case implicitlyCoercible(typ, param):
		return 0, true
	default:
		return 0, false
	}
}

func isUnknownLiteral(e sql.Expression) bool {
	l, ok := e.(*expression.Literal)
	return ok && l.Type() == sql.Unknown
}

func implicitlyCoercible(from, to sql.Type) bool {
	if common, ok := sql.CommonNumericType(from, to); ok {
		return common == to
	}
	switch from {
	case sql.Date:
		return to == sql.Timestamp || to == sql.TimestampTZ
	case sql.Timestamp:
		return to == sql.TimestampTZ
	case sql.Name:
		return to == sql.Text
	}
	return false
}

// coerce converts e to typ. Constants are folded, anything else is wrapped
// in a cast.
func coerce(e sql.Expression, typ sql.Type) (sql.Expression, error) {
	if e.Type() == typ {
		return e, nil
	}

	if typ.IsPolymorphic() {
		if isUnknownLiteral(e) {
			return coerceLiteral(e.(*expression.Literal), sql.Text)
		}
		return e, nil
	}

	if l, ok := e.(*expression.Literal); ok {
		lit, err := coerceLiteral(l, typ)
		if err == nil {
			return lit, nil
		}
		if l.Type() == sql.Unknown {
			return nil, err
		}
	}

	if !implicitlyCoercible(e.Type(), typ) {
		return nil, ErrUnsupportedFeature.New(fmt.Sprintf("cannot cast %s to %s", e.Type().Name, typ.Name))
	}
	return expression.NewCast(e, typ), nil
}

// coerceLiteral converts a constant to typ.
func coerceLiteral(l *expression.Literal, typ sql.Type) (*expression.Literal, error) {
	if l.Type() == typ {
		return l, nil
	}

	if l.IsNull() {
		collation := sql.InvalidOID
		if typ.IsCollatable() {
			collation = sql.DefaultCollationOID
		}
		return expression.NewNullLiteral(typ, collation), nil
	}

	invalid := ErrInvalidLiteral.New(typ.Name, fmt.Sprint(l.Value()))

	switch v := l.Value().(type) {
	case string:
		return coerceString(v, typ)
	case int64:
		switch typ {
		case sql.Int16:
			if v < math.MinInt16 || v > math.MaxInt16 {
				return nil, invalid
			}
			return expression.NewLiteral(v, typ), nil
		case sql.Int32:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, invalid
			}
			return expression.NewLiteral(v, typ), nil
		case sql.Int64:
			return expression.NewLiteral(v, typ), nil
		case sql.Numeric, sql.Float32, sql.Float64:
			return expression.NewLiteral(float64(v), typ), nil
		}
	case float64:
		switch typ {
		case sql.Numeric, sql.Float32, sql.Float64:
			return expression.NewLiteral(v, typ), nil
		}
	case time.Time:
		switch typ {
		case sql.Timestamp, sql.TimestampTZ:
			return expression.NewLiteral(v, typ), nil
		case sql.Date:
			return expression.NewLiteral(v.Truncate(24*time.Hour), typ), nil
		}
	}

	return nil, invalid
}

func coerceString(s string, typ sql.Type) (*expression.Literal, error) {
	invalid := ErrInvalidLiteral.New(typ.Name, s)
	trimmed := strings.TrimSpace(s)

	switch typ {
	case sql.Text, sql.Name:
		return expression.NewLiteral(s, typ), nil
	case sql.Interval:
		d, err := sql.ParseInterval(trimmed)
		if err != nil {
			return nil, invalid
		}
		return expression.NewLiteral(d, typ), nil
	case sql.Timestamp, sql.TimestampTZ, sql.Date:
		for _, layout := range timeLayouts {
			t, err := time.Parse(layout, trimmed)
			if err != nil {
				continue
			}
			if typ == sql.Date {
				t = t.Truncate(24 * time.Hour)
			}
			return expression.NewLiteral(t, typ), nil
		}
		return nil, invalid
	case sql.Int16, sql.Int32, sql.Int64:
		n, err := cast.ToInt64E(trimmed)
		if err != nil {
			return nil, invalid
		}
		return coerceLiteral(expression.NewLiteral(n, sql.Int64), typ)
	case sql.Numeric, sql.Float32, sql.Float64:
		f, err := cast.ToFloat64E(trimmed)
		if err != nil {
			return nil, invalid
		}
		return expression.NewLiteral(f, typ), nil
	case sql.Boolean:
		b, err := cast.ToBoolE(trimmed)
		if err != nil {
			return nil, invalid
		}
		return expression.NewLiteral(b, typ), nil
	}

	return nil, invalid
}
