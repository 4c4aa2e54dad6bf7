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

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	errors "gopkg.in/src-d/go-errors.v1"
)

func TestAnalyzeRejects(t *testing.T) {
	db := testCatalog(t)

	testCases := []struct {
		name  string
		query string
		err   *errors.Kind
	}{
		{
			"no group by",
			"SELECT avg(temperature) FROM conditions",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"order by",
			"SELECT time_bucket('1 hour', timec), avg(temperature) FROM conditions GROUP BY 1 ORDER BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"limit",
			"SELECT time_bucket('1 hour', timec), avg(temperature) FROM conditions GROUP BY 1 LIMIT 5",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"distinct",
			"SELECT DISTINCT time_bucket('1 hour', timec), avg(temperature) FROM conditions GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"subquery",
			"SELECT time_bucket('1 hour', timec), avg(temperature) FROM conditions " +
				"WHERE device IN (SELECT id FROM devices) GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"join",
			"SELECT time_bucket('1 hour', conditions.timec), avg(temperature) FROM conditions, devices GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"subquery in from",
			"SELECT time_bucket('1 hour', c.timec), avg(c.temperature) FROM (SELECT timec, temperature FROM conditions) c GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"not a hypertable",
			"SELECT time_bucket('1 hour', timec), count(id) FROM devices GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"row security",
			"SELECT time_bucket('1 hour', timec), avg(value) FROM secured GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"missing time_bucket",
			"SELECT device, avg(temperature) FROM conditions GROUP BY device",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"time_bucket on another column",
			"SELECT time_bucket(10, device), avg(temperature) FROM conditions GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"time_bucket with origin",
			"SELECT time_bucket('1 hour', timec, '2000-01-03'), avg(temperature) FROM conditions GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"two time_buckets",
			"SELECT time_bucket('1 hour', timec), time_bucket('1 day', timec), avg(temperature) FROM conditions GROUP BY 1, 2",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"zero width",
			"SELECT time_bucket('0 hours', timec), avg(temperature) FROM conditions GROUP BY 1",
			sql.ErrInvalidBucketWidth,
		},
		{
			"distinct aggregate",
			"SELECT time_bucket('1 hour', timec), count(distinct device) FROM conditions GROUP BY 1",
			sql.ErrUnsupportedAggregate,
		},
		{
			"not parallelizable",
			"SELECT time_bucket('1 hour', timec), array_agg(device) FROM conditions GROUP BY 1",
			sql.ErrUnsupportedAggregate,
		},
		{
			"ordered set aggregate",
			"SELECT time_bucket('1 hour', timec), percentile_cont(0.5, temperature) FROM conditions GROUP BY 1",
			sql.ErrUnsupportedAggregate,
		},
		{
			"aggregate in having",
			"SELECT time_bucket('1 hour', timec), avg(temperature) FROM conditions GROUP BY 1 " +
				"HAVING string_agg(location, ',') = 'x'",
			sql.ErrUnsupportedAggregate,
		},
		{
			"volatile target",
			"SELECT time_bucket('1 hour', timec), random(), avg(temperature) FROM conditions GROUP BY 1",
			sql.ErrNonDeterministicExpression,
		},
		{
			"volatile aggregate argument",
			"SELECT time_bucket('1 hour', timec), avg(temperature * random()) FROM conditions GROUP BY 1",
			sql.ErrNonDeterministicExpression,
		},
		{
			"stable grouped expression",
			"SELECT time_bucket('1 hour', timec), date_part('hour', timec), avg(temperature) FROM conditions GROUP BY 1, 2",
			sql.ErrNonDeterministicExpression,
		},
		{
			"column outside aggregate",
			"SELECT time_bucket('1 hour', timec), avg(temperature) + humidity FROM conditions GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"ungrouped output column",
			"SELECT time_bucket('1 hour', timec) AS bucket, device, avg(temperature) FROM conditions GROUP BY bucket",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"ungrouped column inside expression",
			"SELECT time_bucket('1 hour', timec), humidity + temperature, avg(temperature) FROM conditions GROUP BY 1",
			sql.ErrUnsupportedQueryShape,
		},
		{
			"grouped column mixed with aggregate",
			"SELECT time_bucket('1 hour', timec), humidity + avg(temperature) FROM conditions GROUP BY 1, humidity",
			sql.ErrUnsupportedQueryShape,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			_, m, err := analyze(t, db, "CREATE VIEW cagg WITH (timescaledb.continuous) AS "+tt.query)
			require.Error(err)
			require.True(tt.err.Is(err), err.Error())
			require.Nil(m)
		})
	}
}

func TestAnalyzeRejectsQueryFlags(t *testing.T) {
	db := testCatalog(t)

	testCases := []struct {
		name string
		set  func(*plan.Query)
	}{
		{"window functions", func(q *plan.Query) { q.HasWindowFuncs = true }},
		{"set returning functions", func(q *plan.Query) { q.HasTargetSRFs = true }},
		{"distinct on", func(q *plan.Query) { q.HasDistinctOn = true }},
		{"recursive", func(q *plan.Query) { q.HasRecursive = true }},
		{"with", func(q *plan.Query) { q.CTEs = []*plan.CommonTableExpr{{Name: "x", Query: "SELECT 1"}} }},
		{"grouping sets", func(q *plan.Query) { q.GroupingSets = [][]int{{1}, {}} }},
		{"row security", func(q *plan.Query) { q.HasRowSecurity = true }},
		{"not a select", func(q *plan.Query) { q.Command = plan.CommandInsert }},
		{"only", func(q *plan.Query) { q.RangeTable[0].Inh = false }},
		{"tablesample", func(q *plan.Query) { q.RangeTable[0].TableSample = true }},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			cv := parseView(t, db, basicView)
			tt.set(cv.Query)

			_, err := NewDefault(db).Analyze(sql.NewEmptyContext(), cv)
			require.Error(err)
			require.True(sql.ErrUnsupportedQueryShape.Is(err), err.Error())
		})
	}
}

func TestAnalyzeTooManyAliases(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, _, err := analyze(t, db, `CREATE VIEW cagg (a, b, c, d) WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 hour', timec), device, avg(temperature)
		FROM conditions
		GROUP BY time_bucket('1 hour', timec), device`)
	require.Error(err)
	require.True(sql.ErrNamingError.Is(err))
}

func TestAnalyzeNameTooLong(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	name := "a_rather_long_continuous_aggregate_name_for_testing_limits"
	_, _, err := analyze(t, db, `CREATE VIEW `+name+` WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 hour', timec), avg(temperature)
		FROM conditions
		GROUP BY 1`)
	require.Error(err)
	require.True(sql.ErrInternal.Is(err))
}

func TestValidate(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	cv := parseView(t, db, basicView)
	text := cv.Query.String()
	a := NewDefault(db)

	spec1, err := a.Validate(sql.NewEmptyContext(), cv.Query)
	require.NoError(err)
	spec2, err := a.Validate(sql.NewEmptyContext(), cv.Query)
	require.NoError(err)

	require.Equal(spec1, spec2)
	require.Equal(text, cv.Query.String())
	require.Equal(1, spec1.SortGroupRef)

	_, err = a.Validate(sql.NewEmptyContext(), parseView(t, db,
		"CREATE VIEW v AS SELECT device, avg(temperature) FROM conditions GROUP BY device").Query)
	require.Error(err)
	require.True(sql.ErrUnsupportedQueryShape.Is(err))
}

func TestResolveSignature(t *testing.T) {
	db := testCatalog(t)

	testCases := []struct {
		sig string
		oid sql.OID
	}{
		{"avg(double precision)", 2105},
		{"count()", 2803},
		{`count("any")`, 2147},
		{"pg_catalog.max(text)", 2129},
		{"string_agg(text,text)", 3538},
	}

	for _, tt := range testCases {
		t.Run(tt.sig, func(t *testing.T) {
			require := require.New(t)
			fn, err := ResolveSignature(db, tt.sig)
			require.NoError(err)
			require.Equal(tt.oid, fn.OID)
			if fn.Schema == sql.CatalogSchema || fn.Schema == sql.PublicSchema {
				rt, err := ResolveSignature(db, fn.Signature())
				require.NoError(err)
				require.Equal(fn.OID, rt.OID)
			}
		})
	}

	_, err := ResolveSignature(db, "avg(text)")
	require.Error(t, err)
	require.True(t, sql.ErrFunctionNotFound.Is(err))

	_, err = ResolveSignature(db, "avg")
	require.Error(t, err)
}
