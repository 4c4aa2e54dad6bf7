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
	"strings"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// FuncCall is a call to a plain function.
type FuncCall struct {
	FuncOID         sql.OID
	Schema          string
	Name            string
	Args            []sql.Expression
	ResultType      sql.Type
	ResultCollation sql.OID
	InputCollation  sql.OID
}

// NewFuncCall creates a call to fn returning resultType. Polymorphic
// functions need the caller to resolve the result type.
func NewFuncCall(fn *sql.Function, resultType sql.Type, args ...sql.Expression) *FuncCall {
	return &FuncCall{
		FuncOID:         fn.OID,
		Schema:          fn.Schema,
		Name:            fn.Name,
		Args:            args,
		ResultType:      resultType,
		ResultCollation: resultCollation(resultType, args),
		InputCollation:  inputCollation(args),
	}
}

// Type implements the Expression interface.
func (f *FuncCall) Type() sql.Type { return f.ResultType }

// Typmod implements the Expression interface.
func (*FuncCall) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (f *FuncCall) Collation() sql.OID { return f.ResultCollation }

// Children implements the Expression interface.
func (f *FuncCall) Children() []sql.Expression { return f.Args }

// WithChildren implements the Expression interface.
func (f *FuncCall) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != len(f.Args) {
		return nil, sql.ErrInvalidChildrenNumber.New(f, len(children), len(f.Args))
	}
	nf := *f
	nf.Args = children
	return &nf, nil
}

func (f *FuncCall) String() string {
	return fmt.Sprintf("%s(%s)", qualifiedName(f.Schema, f.Name), strings.Join(exprsString(f.Args), ", "))
}

func (f *FuncCall) attributes() []interface{} {
	return []interface{}{"func", uint32(f.FuncOID), uint32(f.ResultType.OID), uint32(f.ResultCollation), uint32(f.InputCollation)}
}

func qualifiedName(schema, name string) string {
	if schema == "" || schema == sql.CatalogSchema || schema == sql.PublicSchema {
		return sql.QuoteIdentifier(name)
	}
	return sql.QuoteIdentifier(schema) + "." + sql.QuoteIdentifier(name)
}

// inputCollation is the collation shared by the collatable arguments.
func inputCollation(args []sql.Expression) sql.OID {
	for _, a := range args {
		if c := a.Collation(); c.IsValid() {
			return c
		}
	}
	return sql.InvalidOID
}

func resultCollation(typ sql.Type, args []sql.Expression) sql.OID {
	if !typ.IsCollatable() {
		return sql.InvalidOID
	}
	if c := inputCollation(args); c.IsValid() {
		return c
	}
	return sql.DefaultCollationOID
}
