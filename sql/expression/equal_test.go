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
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql"
)

func TestEqual(t *testing.T) {
	avg := func(e sql.Expression) sql.Expression {
		return NewAggregateCall(avgFloat, sql.Float64, e)
	}

	testCases := []struct {
		name  string
		a, b  sql.Expression
		equal bool
	}{
		{"same column", temperature(), temperature(), true},
		{
			"different attno",
			temperature(),
			NewColumnRef(1, 5, "temperature", sql.Float64, -1, sql.InvalidOID),
			false,
		},
		{
			"different relation",
			temperature(),
			NewColumnRef(2, 3, "temperature", sql.Float64, -1, sql.InvalidOID),
			false,
		},
		{"same aggregate", avg(temperature()), avg(temperature()), true},
		{
			"different aggregate function",
			avg(temperature()),
			NewAggregateCall(maxFloat, sql.Float64, temperature()),
			false,
		},
		{
			"distinct flag",
			avg(temperature()),
			func() sql.Expression {
				a := NewAggregateCall(avgFloat, sql.Float64, temperature())
				a.Distinct = true
				return a
			}(),
			false,
		},
		{
			"literals",
			NewLiteral(time.Hour, sql.Interval),
			NewLiteral(time.Hour, sql.Interval),
			true,
		},
		{
			"literal values differ",
			NewLiteral(time.Hour, sql.Interval),
			NewLiteral(2*time.Hour, sql.Interval),
			false,
		},
		{
			"literal types differ",
			NewLiteral(int64(10), sql.Int32),
			NewLiteral(int64(10), sql.Int64),
			false,
		},
		{
			"null literals",
			NewNullLiteral(sql.Float64, sql.InvalidOID),
			NewNullLiteral(sql.Float64, sql.InvalidOID),
			true,
		},
		{
			"operator",
			NewOpExpr(float8gt, avg(temperature()), NewLiteral(float64(10), sql.Float64)),
			NewOpExpr(float8gt, avg(temperature()), NewLiteral(float64(10), sql.Float64)),
			true,
		},
		{
			"operator operands swapped",
			NewOpExpr(float8gt, avg(temperature()), NewLiteral(float64(10), sql.Float64)),
			NewOpExpr(float8gt, NewLiteral(float64(10), sql.Float64), avg(temperature())),
			false,
		},
		{"and or", NewAnd(temperature(), temperature()), NewOr(temperature(), temperature()), false},
		{"nil", nil, nil, true},
		{"nil and non nil", nil, temperature(), false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			require.Equal(tt.equal, Equal(tt.a, tt.b))
			require.Equal(tt.equal, Equal(tt.b, tt.a))
		})
	}
}

func TestEqualTimestamps(t *testing.T) {
	ts := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	local := ts.In(time.FixedZone("CET", 3600))

	require.True(t, Equal(NewLiteral(ts, sql.TimestampTZ), NewLiteral(local, sql.TimestampTZ)))
}
