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

// FirstMutable returns the name of the first function in the expression
// tree that is not immutable, if any. Functions unknown to the lookup are
// considered volatile.
func FirstMutable(expr sql.Expression, fns sql.FunctionLookup) (string, bool) {
	var name string
	Inspect(expr, func(e sql.Expression) bool {
		if name != "" {
			return false
		}

		var oid sql.OID
		var fallback string
		switch e := e.(type) {
		case *FuncCall:
			oid, fallback = e.FuncOID, e.Name
		case *AggregateCall:
			oid, fallback = e.FuncOID, e.Name
		case *OpExpr:
			oid, fallback = e.FuncOID, e.Op
		case *Subquery:
			name = e.String()
			return false
		default:
			return true
		}

		fn, ok := fns.Function(oid)
		if !ok {
			name = fallback
			return false
		}
		if fn.Volatility != sql.Immutable {
			name = fn.QualifiedName()
			return false
		}
		return true
	})

	return name, name != ""
}
