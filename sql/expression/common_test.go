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

var (
	avgFloat = &sql.Function{
		OID: 2105, Schema: sql.CatalogSchema, Name: "avg",
		ArgTypes: []sql.Type{sql.Float64}, ReturnType: sql.Float64,
		Volatility: sql.Immutable, Kind: sql.AggregateFunction,
	}
	maxFloat = &sql.Function{
		OID: 2120, Schema: sql.CatalogSchema, Name: "max",
		ArgTypes: []sql.Type{sql.Float64}, ReturnType: sql.Float64,
		Volatility: sql.Immutable, Kind: sql.AggregateFunction,
	}
	lowerText = &sql.Function{
		OID: 870, Schema: sql.CatalogSchema, Name: "lower",
		ArgTypes: []sql.Type{sql.Text}, ReturnType: sql.Text,
		Volatility: sql.Immutable,
	}
	nowFunc = &sql.Function{
		OID: 1299, Schema: sql.CatalogSchema, Name: "now",
		ReturnType: sql.TimestampTZ, Volatility: sql.Stable,
	}
	float8gt = &sql.Operator{
		OID: 674, Name: ">", Left: sql.Float64, Right: sql.Float64,
		ResultType: sql.Boolean, FuncOID: 297,
	}
	float8gtFunc = &sql.Function{
		OID: 297, Schema: sql.CatalogSchema, Name: "float8gt",
		ArgTypes: []sql.Type{sql.Float64, sql.Float64}, ReturnType: sql.Boolean,
		Volatility: sql.Immutable,
	}
)

type functions map[sql.OID]*sql.Function

func (f functions) Function(oid sql.OID) (*sql.Function, bool) {
	fn, ok := f[oid]
	return fn, ok
}

func (f functions) FunctionsByName(schema, name string) []*sql.Function {
	var out []*sql.Function
	for _, fn := range f {
		if fn.Name == name && (schema == "" || fn.Schema == schema) {
			out = append(out, fn)
		}
	}
	return out
}

func newFunctions(fns ...*sql.Function) functions {
	f := make(functions)
	for _, fn := range fns {
		f[fn.OID] = fn
	}
	return f
}

func temperature() *ColumnRef {
	return NewColumnRef(1, 3, "temperature", sql.Float64, -1, sql.InvalidOID)
}

func location() *ColumnRef {
	return NewColumnRef(1, 4, "location", sql.Text, -1, sql.DefaultCollationOID)
}
