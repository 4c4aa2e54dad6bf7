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
	"gopkg.in/src-d/go-cagg.v0/sql"
)

// Subquery is a sub-select used as an expression. It is kept as text: the
// rewrite only needs to know it is there.
type Subquery struct {
	Query string
	typ   sql.Type
}

// NewSubquery creates a new subquery expression.
func NewSubquery(query string, typ sql.Type) *Subquery {
	return &Subquery{Query: query, typ: typ}
}

// Type implements the Expression interface.
func (s *Subquery) Type() sql.Type { return s.typ }

// Typmod implements the Expression interface.
func (*Subquery) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (*Subquery) Collation() sql.OID { return sql.InvalidOID }

// Children implements the Expression interface.
func (*Subquery) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (s *Subquery) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(s, len(children), 0)
	}
	return s, nil
}

func (s *Subquery) String() string { return "(" + s.Query + ")" }

func (s *Subquery) attributes() []interface{} { return []interface{}{"subquery", s.Query} }
