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
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql"
)

func TestFirstMutable(t *testing.T) {
	fns := newFunctions(avgFloat, lowerText, nowFunc, float8gtFunc)

	unknown := &sql.Function{OID: 424242, Name: "mystery", ReturnType: sql.Float64}

	testCases := []struct {
		name    string
		expr    sql.Expression
		mutable string
	}{
		{"column", temperature(), ""},
		{"immutable function", NewFuncCall(lowerText, sql.Text, location()), ""},
		{"aggregate", NewAggregateCall(avgFloat, sql.Float64, temperature()), ""},
		{
			"immutable operator",
			NewOpExpr(float8gt, temperature(), NewLiteral(float64(1), sql.Float64)),
			"",
		},
		{"stable function", NewFuncCall(nowFunc, sql.TimestampTZ), "pg_catalog.now"},
		{
			"nested stable function",
			NewIsNull(NewFuncCall(nowFunc, sql.TimestampTZ), false),
			"pg_catalog.now",
		},
		{"unknown function", NewFuncCall(unknown, sql.Float64), "mystery"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			name, ok := FirstMutable(tt.expr, fns)
			require.Equal(tt.mutable != "", ok)
			require.Equal(tt.mutable, name)
		})
	}
}
