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

package expression

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// Literal represents a constant value. A nil value is a typed NULL.
type Literal struct {
	value     interface{}
	typ       sql.Type
	typmod    int32
	collation sql.OID
}

// NewLiteral creates a new Literal expression. Collatable types get the
// default collation.
func NewLiteral(value interface{}, typ sql.Type) *Literal {
	collation := sql.InvalidOID
	if typ.IsCollatable() {
		collation = sql.DefaultCollationOID
	}
	return &Literal{value: value, typ: typ, typmod: -1, collation: collation}
}

// NewNullLiteral creates a NULL constant of the given type and collation.
func NewNullLiteral(typ sql.Type, collation sql.OID) *Literal {
	return &Literal{typ: typ, typmod: -1, collation: collation}
}

// WithCollation returns a copy of the literal with the given collation.
func (p *Literal) WithCollation(collation sql.OID) *Literal {
	np := *p
	np.collation = collation
	return &np
}

// Value returns the literal value, nil for NULL.
func (p *Literal) Value() interface{} { return p.value }

// IsNull reports whether the literal is a NULL constant.
func (p *Literal) IsNull() bool { return p.value == nil }

// Type implements the Expression interface.
func (p *Literal) Type() sql.Type { return p.typ }

// Typmod implements the Expression interface.
func (p *Literal) Typmod() int32 { return p.typmod }

// Collation implements the Expression interface.
func (p *Literal) Collation() sql.OID { return p.collation }

// Children implements the Expression interface.
func (*Literal) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (p *Literal) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(children), 0)
	}
	return p, nil
}

func (p *Literal) String() string {
	if p.value == nil {
		return "NULL::" + p.typ.Name
	}

	switch v := p.value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int64:
		if p.typ == sql.Int32 {
			return strconv.FormatInt(v, 10)
		}
		return fmt.Sprintf("'%d'::%s", v, p.typ.Name)
	case float64:
		return fmt.Sprintf("'%s'::%s", strconv.FormatFloat(v, 'g', -1, 64), p.typ.Name)
	case time.Duration:
		return fmt.Sprintf("'%s'::%s", sql.FormatInterval(v), p.typ.Name)
	case time.Time:
		return fmt.Sprintf("'%s'::%s", v.UTC().Format("2006-01-02 15:04:05.999999-07"), p.typ.Name)
	default:
		return fmt.Sprintf("'%s'::%s", strings.Replace(fmt.Sprint(v), "'", "''", -1), p.typ.Name)
	}
}

func (p *Literal) attributes() []interface{} {
	return []interface{}{"literal", uint32(p.typ.OID), p.typmod, uint32(p.collation), literalKey(p.value)}
}

func literalKey(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return "time:" + v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
