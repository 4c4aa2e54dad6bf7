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

package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
)

func TestCreateViewIsContinuous(t *testing.T) {
	testCases := []struct {
		options  map[string]string
		expected bool
	}{
		{nil, false},
		{map[string]string{"fillfactor": "70"}, false},
		{map[string]string{ContinuousOption: ""}, true},
		{map[string]string{ContinuousOption: "ON"}, true},
		{map[string]string{ContinuousOption: "true"}, true},
		{map[string]string{ContinuousOption: "off"}, false},
		{map[string]string{ContinuousOption: "0"}, false},
	}

	for _, tt := range testCases {
		cv := NewCreateView("", "v", nil, tt.options, nil, "SELECT 1")
		require.Equal(t, tt.expected, cv.IsContinuous(), "options: %v", tt.options)
	}
}

func TestCreateViewString(t *testing.T) {
	require := require.New(t)

	cv := NewCreateView("Analytics", "hourly", []string{"a", "b"}, nil, nil, "SELECT 1, 2")
	require.Equal(`CREATE VIEW "Analytics".hourly (a, b) AS SELECT 1, 2`, cv.String())

	cv.Query = relationQuery("public", "readings", "ts", "value")
	require.Equal(`CREATE VIEW "Analytics".hourly (a, b) AS SELECT ts, value FROM public.readings`, cv.String())
}

func TestQueryString(t *testing.T) {
	require := require.New(t)

	q := relationQuery("public", "readings", "ts", "value")
	q.RangeTable[0].Inh = false
	q.RangeTable[0].Alias = "r"
	q.TargetList[0].SortGroupRef = 1
	q.TargetList[1].Name = "v"
	q.TargetList = append(q.TargetList, &TargetEntry{
		Expr:  expression.NewColumnRef(1, 3, "device", sql.Int32, -1, sql.InvalidOID),
		Resno: 3,
		Name:  "device",
		Junk:  true,
	})
	q.GroupClause = []*SortGroupClause{{TargetRef: 1}}
	q.SortClause = []*SortGroupClause{{TargetRef: 1, Descending: true}, {TargetRef: 9}}

	require.Equal(
		"SELECT ts, value AS v FROM ONLY public.readings r GROUP BY ts ORDER BY ts DESC, <ref 9>",
		q.String(),
	)

	q.JoinTree.FromList = []FromItem{&JoinExpr{
		Kind:  LeftJoin,
		Left:  &RangeTableRef{Index: 1},
		Right: &RangeTableRef{Index: 2},
	}}
	require.Equal(
		"SELECT ts, value AS v FROM ONLY public.readings r LEFT JOIN <rte 2> GROUP BY ts ORDER BY ts DESC, <ref 9>",
		q.String(),
	)
}

func TestQueryCopy(t *testing.T) {
	require := require.New(t)

	q := relationQuery("public", "readings", "ts", "value")
	q.GroupClause = []*SortGroupClause{{TargetRef: 1}}
	q.SetOperation = &SetOperation{Op: "union"}

	c := q.Copy()
	c.RangeTable[0].Name = "other"
	c.RangeTable[0].ColNames[0] = "x"
	c.TargetList[0].Name = "x"
	c.GroupClause[0].TargetRef = 2
	c.SetOperation.All = true
	c.JoinTree.FromList[0].(*RangeTableRef).Index = 5

	require.Equal("readings", q.RangeTable[0].Name)
	require.Equal("ts", q.RangeTable[0].ColNames[0])
	require.Equal("ts", q.TargetList[0].Name)
	require.Equal(1, q.GroupClause[0].TargetRef)
	require.False(q.SetOperation.All)
	require.Equal(1, q.JoinTree.FromList[0].(*RangeTableRef).Index)
}

func TestOutputColumns(t *testing.T) {
	require := require.New(t)

	q := relationQuery("public", "readings", "ts", "value")
	q.TargetList[0].Junk = true

	cols := q.OutputColumns()
	require.Len(cols, 1)
	require.Equal("value", cols[0].Name)
	require.Equal(1, cols[0].Attno)
	require.Equal(sql.Int64, cols[0].Type)
	require.True(cols[0].Nullable)
}

func TestSortGroupRefs(t *testing.T) {
	require := require.New(t)

	q := relationQuery("public", "readings", "ts", "value")
	require.Equal(0, MaxSortGroupRef(q.TargetList))

	q.TargetList[1].SortGroupRef = 4
	require.Equal(4, MaxSortGroupRef(q.TargetList))

	tle, ok := q.TargetBySortGroupRef(4)
	require.True(ok)
	require.Equal("value", tle.Name)

	_, ok = q.TargetBySortGroupRef(0)
	require.False(ok)
}
