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

// ColumnRef references a column of a range table entry. RelIndex and Attno
// are both 1-based.
type ColumnRef struct {
	relIndex  int
	attno     int
	name      string
	typ       sql.Type
	typmod    int32
	collation sql.OID
}

// NewColumnRef creates a new column reference.
func NewColumnRef(relIndex, attno int, name string, typ sql.Type, typmod int32, collation sql.OID) *ColumnRef {
	return &ColumnRef{
		relIndex:  relIndex,
		attno:     attno,
		name:      name,
		typ:       typ,
		typmod:    typmod,
		collation: collation,
	}
}

// RelIndex returns the position of the referenced range table entry.
func (c *ColumnRef) RelIndex() int { return c.relIndex }

// Attno returns the attribute number of the referenced column.
func (c *ColumnRef) Attno() int { return c.attno }

// Name returns the column name.
func (c *ColumnRef) Name() string { return c.name }

// Type implements the Expression interface.
func (c *ColumnRef) Type() sql.Type { return c.typ }

// Typmod implements the Expression interface.
func (c *ColumnRef) Typmod() int32 { return c.typmod }

// Collation implements the Expression interface.
func (c *ColumnRef) Collation() sql.OID { return c.collation }

// Children implements the Expression interface.
func (*ColumnRef) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (c *ColumnRef) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(c, len(children), 0)
	}
	return c, nil
}

func (c *ColumnRef) String() string {
	if c.name == "" {
		return fmt.Sprintf("$%d.%d", c.relIndex, c.attno)
	}
	return sql.QuoteIdentifier(c.name)
}

func (c *ColumnRef) attributes() []interface{} {
	return []interface{}{"column", c.relIndex, c.attno, c.name, uint32(c.typ.OID), c.typmod, uint32(c.collation)}
}

// WholeRowRef references an entire row of a range table entry.
type WholeRowRef struct {
	relIndex int
	relName  string
}

// NewWholeRowRef creates a reference to the whole row of a relation.
func NewWholeRowRef(relIndex int, relName string) *WholeRowRef {
	return &WholeRowRef{relIndex: relIndex, relName: relName}
}

// RelIndex returns the position of the referenced range table entry.
func (w *WholeRowRef) RelIndex() int { return w.relIndex }

// Type implements the Expression interface.
func (*WholeRowRef) Type() sql.Type { return sql.Record }

// Typmod implements the Expression interface.
func (*WholeRowRef) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (*WholeRowRef) Collation() sql.OID { return sql.InvalidOID }

// Children implements the Expression interface.
func (*WholeRowRef) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (w *WholeRowRef) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(w, len(children), 0)
	}
	return w, nil
}

func (w *WholeRowRef) String() string {
	return sql.QuoteIdentifier(w.relName) + ".*"
}

func (w *WholeRowRef) attributes() []interface{} {
	return []interface{}{"wholerow", w.relIndex, w.relName}
}
