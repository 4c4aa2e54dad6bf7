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

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// Cast converts the result of an expression to another type.
type Cast struct {
	UnaryExpression
	typ sql.Type
}

// NewCast creates a new Cast expression.
func NewCast(child sql.Expression, typ sql.Type) *Cast {
	return &Cast{UnaryExpression{Child: child}, typ}
}

// Type implements the Expression interface.
func (c *Cast) Type() sql.Type { return c.typ }

// Typmod implements the Expression interface.
func (*Cast) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (c *Cast) Collation() sql.OID {
	if c.typ.IsCollatable() {
		return sql.DefaultCollationOID
	}
	return sql.InvalidOID
}

// WithChildren implements the Expression interface.
func (c *Cast) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(c, len(children), 1)
	}
	return NewCast(children[0], c.typ), nil
}

func (c *Cast) String() string {
	return fmt.Sprintf("(%s)::%s", c.Child, c.typ.Name)
}

func (c *Cast) attributes() []interface{} { return []interface{}{"cast", uint32(c.typ.OID)} }
