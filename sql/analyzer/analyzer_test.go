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
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/memory"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
	"gopkg.in/src-d/go-cagg.v0/sql/parse"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

var weekInterval = int64(7 * 24 * time.Hour / time.Microsecond)

func testCatalog(t *testing.T) *memory.Database {
	t.Helper()
	require := require.New(t)

	db := memory.NewDatabase()
	require.NoError(db.AddRelation(&sql.Relation{
		Schema: sql.PublicSchema,
		Name:   "conditions",
		Columns: []*sql.Column{
			{Name: "timec", Type: sql.TimestampTZ, Typmod: -1},
			{Name: "device", Type: sql.Int32, Typmod: -1},
			{Name: "location", Type: sql.Text, Typmod: -1, Collation: sql.DefaultCollationOID},
			{Name: "temperature", Type: sql.Float64, Typmod: -1},
			{Name: "humidity", Type: sql.Float64, Typmod: -1},
		},
	}))
	_, err := db.AddHypertable(sql.PublicSchema, "conditions", "timec", weekInterval)
	require.NoError(err)

	require.NoError(db.AddRelation(&sql.Relation{
		Schema: sql.PublicSchema,
		Name:   "readings",
		Columns: []*sql.Column{
			{Name: "ts", Type: sql.Int64, Typmod: -1},
			{Name: "value", Type: sql.Float64, Typmod: -1},
		},
	}))
	_, err = db.AddHypertable(sql.PublicSchema, "readings", "ts", 1000)
	require.NoError(err)

	require.NoError(db.AddRelation(&sql.Relation{
		Schema:      sql.PublicSchema,
		Name:        "secured",
		RowSecurity: true,
		Columns: []*sql.Column{
			{Name: "timec", Type: sql.TimestampTZ, Typmod: -1},
			{Name: "value", Type: sql.Float64, Typmod: -1},
		},
	}))
	_, err = db.AddHypertable(sql.PublicSchema, "secured", "timec", weekInterval)
	require.NoError(err)

	require.NoError(db.AddRelation(&sql.Relation{
		Schema: sql.PublicSchema,
		Name:   "devices",
		Columns: []*sql.Column{
			{Name: "id", Type: sql.Int32, Typmod: -1},
			{Name: "timec", Type: sql.TimestampTZ, Typmod: -1},
		},
	}))

	return db
}

func parseView(t *testing.T, db sql.Catalog, query string) *plan.CreateView {
	t.Helper()
	cv, err := parse.Parse(sql.NewEmptyContext(), db, query)
	require.NoError(t, err)
	return cv
}

func analyze(t *testing.T, db sql.Catalog, query string) (*plan.CreateView, *plan.Materialization, error) {
	t.Helper()
	cv := parseView(t, db, query)
	m, err := NewDefault(db).Analyze(sql.NewEmptyContext(), cv)
	return cv, m, err
}

const basicView = `CREATE VIEW cagg WITH (timescaledb.continuous) AS
	SELECT time_bucket('1 hour', timec), device, avg(temperature)
	FROM conditions
	GROUP BY time_bucket('1 hour', timec), device`

func TestAnalyze(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	cv, m, err := analyze(t, db, basicView)
	require.NoError(err)

	rel, ok := db.RelationByName(sql.PublicSchema, "conditions")
	require.True(ok)

	require.Equal(plan.BucketingSpec{
		HypertableID:        1,
		RelID:               rel.OID,
		PartitionColumn:     1,
		PartitionColumnName: "timec",
		PartitionType:       sql.TimestampTZ,
		PartitionInterval:   weekInterval,
		BucketWidth:         int64(time.Hour / time.Microsecond),
		SortGroupRef:        1,
	}, m.Spec)

	expected := []plan.MaterializationColumn{
		{Name: "time_partition_col", Type: sql.TimestampTZ, Typmod: -1, Role: plan.RolePartitionBucket},
		{Name: "device", Type: sql.Int32, Typmod: -1, Role: plan.RolePlain},
		{Name: "tscol3", Type: sql.Bytea, Typmod: -1, Role: plan.RolePartialState},
		{Name: "chunk_id", Type: sql.Int32, Typmod: -1, Role: plan.RoleChunkLocator},
	}
	if diff := cmp.Diff(expected, m.Columns); diff != "" {
		t.Errorf("materialization columns mismatch (-want +got):\n%s", diff)
	}
	require.Equal(0, m.PartitionColumn)

	require.Equal(sql.PublicSchema, m.UserViewSchema)
	require.Equal("cagg", m.UserViewName)
	require.Equal(sql.InternalSchema, m.MatTableSchema)
	require.Equal("ts_internal_caggtab", m.MatTableName)
	require.Equal(sql.InternalSchema, m.PartialViewSchema)
	require.Equal("ts_internal_caggview", m.PartialViewName)
	require.Equal(cv.Query, m.SourceQuery)

	populate := m.PopulateQuery
	require.Len(populate.TargetList, len(m.Columns))
	for i, tle := range populate.TargetList {
		require.Equal(i+1, tle.Resno)
		require.Equal(m.Columns[i].Name, tle.Name)
		require.Equal(m.Columns[i].Type, tle.Expr.Type())
		require.False(tle.Junk)
	}

	partial, ok := populate.TargetList[2].Expr.(*expression.FuncCall)
	require.True(ok)
	require.Equal(memory.PartializeAggOID, partial.FuncOID)
	avg, ok := partial.Args[0].(*expression.AggregateCall)
	require.True(ok)
	require.Equal(sql.OID(2105), avg.FuncOID)

	locator, ok := populate.TargetList[3].Expr.(*expression.FuncCall)
	require.True(ok)
	require.Equal(memory.ChunkForTupleOID, locator.FuncOID)
	require.Equal(int64(1), locator.Args[0].(*expression.Literal).Value())
	_, ok = locator.Args[1].(*expression.WholeRowRef)
	require.True(ok)

	require.Len(populate.GroupClause, 3)
	require.Equal(populate.TargetList[3].SortGroupRef, populate.GroupClause[2].TargetRef)
	require.Nil(populate.Having)
	require.True(populate.HasAggs)

	view := m.ViewQuery
	require.Len(view.RangeTable, 1)
	require.Equal("ts_internal_caggtab", view.RangeTable[0].Name)
	require.Equal([]string{"time_partition_col", "device", "tscol3", "chunk_id"}, view.RangeTable[0].ColNames)
	require.Len(view.GroupClause, 2)
	require.Len(view.TargetList, 3)
	require.Equal("time_bucket", view.TargetList[0].Name)
	require.Equal("device", view.TargetList[1].Name)
	require.Equal("avg", view.TargetList[2].Name)

	bucket, ok := view.TargetList[0].Expr.(*expression.ColumnRef)
	require.True(ok)
	require.Equal(1, bucket.Attno())
	require.Equal(1, view.TargetList[0].OrigColumn)

	final, ok := view.TargetList[2].Expr.(*expression.AggregateCall)
	require.True(ok)
	require.Equal(memory.FinalizeAggOID, final.FuncOID)
	require.Equal(sql.Float64, final.Type())
	require.Len(final.Args, 5)
	require.Equal("avg(double precision)", final.Args[0].(*expression.Literal).Value())
	require.True(final.Args[1].(*expression.Literal).IsNull())
	require.True(final.Args[2].(*expression.Literal).IsNull())
	require.Equal(3, final.Args[3].(*expression.ColumnRef).Attno())
	null := final.Args[4].(*expression.Literal)
	require.True(null.IsNull())
	require.Equal(sql.Float64, null.Type())

	fn, err := ResolveSignature(db, final.Args[0].(*expression.Literal).Value().(string))
	require.NoError(err)
	require.Equal(avg.FuncOID, fn.OID)
}

func TestAnalyzeLeavesSourceQueryUntouched(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	cv := parseView(t, db, basicView)
	before := cv.Query.Copy()
	text := cv.Query.String()

	_, err := NewDefault(db).Analyze(sql.NewEmptyContext(), cv)
	require.NoError(err)

	require.Equal(text, cv.Query.String())
	require.Equal(len(before.TargetList), len(cv.Query.TargetList))
	for i, tle := range before.TargetList {
		require.Equal(*tle, *cv.Query.TargetList[i])
	}
	require.Len(cv.Query.GroupClause, 2)
}

func TestAnalyzeFingerprint(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, m1, err := analyze(t, db, basicView)
	require.NoError(err)
	_, m2, err := analyze(t, db, basicView)
	require.NoError(err)
	require.Equal(m1.Fingerprint, m2.Fingerprint)

	_, m3, err := analyze(t, db, `CREATE VIEW cagg WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 day', timec), device, avg(temperature)
		FROM conditions
		GROUP BY time_bucket('1 day', timec), device`)
	require.NoError(err)
	require.NotEqual(m1.Fingerprint, m3.Fingerprint)
}

func TestAnalyzeDuplicateAggregates(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, m, err := analyze(t, db, `CREATE VIEW cagg WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 hour', timec), avg(temperature) AS a, avg(temperature) AS b
		FROM conditions
		GROUP BY time_bucket('1 hour', timec)`)
	require.NoError(err)

	var names []string
	for _, c := range m.Columns {
		names = append(names, c.Name)
	}
	require.Equal([]string{"time_partition_col", "tscol2", "tscol3", "chunk_id"}, names)
	require.Equal(plan.RolePartialState, m.Columns[1].Role)
	require.Equal(plan.RolePartialState, m.Columns[2].Role)
	require.True(expression.Equal(m.PopulateQuery.TargetList[1].Expr, m.PopulateQuery.TargetList[2].Expr))
}

func TestAnalyzeHaving(t *testing.T) {
	db := testCatalog(t)

	testCases := []struct {
		name    string
		having  string
		columns []string
	}{
		{
			"aggregate in target list",
			"avg(temperature) > 10",
			[]string{"time_partition_col", "device", "tscol3", "chunk_id"},
		},
		{
			"new aggregate",
			"min(humidity) > 5",
			[]string{"time_partition_col", "device", "tscol3", "tscol4", "chunk_id"},
		},
		{
			"grouped column",
			"device > 3 AND avg(temperature) < 30",
			[]string{"time_partition_col", "device", "tscol3", "chunk_id"},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			_, m, err := analyze(t, db, `CREATE VIEW cagg WITH (timescaledb.continuous) AS
				SELECT time_bucket('1 hour', timec), device, avg(temperature)
				FROM conditions
				GROUP BY time_bucket('1 hour', timec), device
				HAVING `+tt.having)
			require.NoError(err)

			var names []string
			for _, c := range m.Columns {
				names = append(names, c.Name)
			}
			require.Equal(tt.columns, names)
			require.NotNil(m.ViewQuery.Having)
			require.Nil(m.PopulateQuery.Having)

			var finals int
			expression.Inspect(m.ViewQuery.Having, func(e sql.Expression) bool {
				if e == nil {
					return false
				}
				switch e := e.(type) {
				case *expression.AggregateCall:
					require.Equal(memory.FinalizeAggOID, e.FuncOID)
					finals++
					return false
				case *expression.ColumnRef:
					require.True(e.Attno() <= len(m.Columns), e.String())
				}
				return true
			})
			require.Equal(1, finals)
		})
	}
}

func TestAnalyzeHavingUngroupedColumn(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, _, err := analyze(t, db, `CREATE VIEW cagg WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 hour', timec), avg(temperature)
		FROM conditions
		GROUP BY time_bucket('1 hour', timec)
		HAVING humidity > 3`)
	require.Error(err)
	require.True(sql.ErrUnsupportedQueryShape.Is(err))
}

func TestAnalyzeAliases(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, m, err := analyze(t, db, `CREATE VIEW cagg (bucket, dev) WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 hour', timec), device, max(temperature)
		FROM conditions
		GROUP BY time_bucket('1 hour', timec), device`)
	require.NoError(err)

	var names []string
	for _, col := range m.ViewQuery.OutputColumns() {
		names = append(names, col.Name)
	}
	require.Equal([]string{"bucket", "dev", "max"}, names)
	require.Equal("time_partition_col", m.Columns[0].Name)
	require.Equal("device", m.Columns[1].Name)
}

func TestAnalyzeJunkGroupColumn(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, m, err := analyze(t, db, `CREATE VIEW cagg WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 hour', timec) AS bucket, sum(temperature)
		FROM conditions
		GROUP BY bucket, location`)
	require.NoError(err)

	var names []string
	for _, c := range m.Columns {
		names = append(names, c.Name)
	}
	require.Equal([]string{"time_partition_col", "tscol2", "location", "chunk_id"}, names)
	require.Equal(sql.DefaultCollationOID, m.Columns[2].Collation)

	require.Len(m.ViewQuery.TargetList, 3)
	require.True(m.ViewQuery.TargetList[2].Junk)
	require.Len(m.ViewQuery.OutputColumns(), 2)
	for _, tle := range m.PopulateQuery.TargetList {
		require.False(tle.Junk)
	}
}

func TestAnalyzeIntegerHypertable(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, m, err := analyze(t, db, `CREATE VIEW rollup WITH (timescaledb.continuous) AS
		SELECT time_bucket(10, ts), count(*), max(value)
		FROM readings
		GROUP BY time_bucket(10, ts)`)
	require.NoError(err)

	require.Equal(int64(10), m.Spec.BucketWidth)
	require.Equal(sql.Int64, m.Spec.PartitionType)
	require.Equal(int64(1000), m.Spec.PartitionInterval)
	require.Equal(sql.Int64, m.Columns[0].Type)

	final := m.ViewQuery.TargetList[1].Expr.(*expression.AggregateCall)
	require.Equal("count()", final.Args[0].(*expression.Literal).Value())
}

func TestAnalyzeCollatedAggregate(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	_, m, err := analyze(t, db, `CREATE VIEW cagg WITH (timescaledb.continuous) AS
		SELECT time_bucket('1 hour', timec), max(location)
		FROM conditions
		GROUP BY time_bucket('1 hour', timec)`)
	require.NoError(err)

	final := m.ViewQuery.TargetList[1].Expr.(*expression.AggregateCall)
	require.Equal("max(text)", final.Args[0].(*expression.Literal).Value())
	require.Equal(sql.CatalogSchema, final.Args[1].(*expression.Literal).Value())
	require.Equal("default", final.Args[2].(*expression.Literal).Value())
	require.Equal(sql.Name, final.Args[1].Type())
	require.Equal(sql.DefaultCollationOID, final.Args[4].Collation())
	require.Equal(sql.DefaultCollationOID, final.InputCollation)
}

func TestAnalyzeExecute(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)
	ctx := sql.NewEmptyContext()

	cv, m, err := analyze(t, db, basicView)
	require.NoError(err)

	var rec *plan.ContinuousAggRecord
	err = db.Transaction(ctx, func(tx *memory.Tx) error {
		var err error
		rec, err = plan.NewCreateContinuousAggregate(m, cv.Definition).Execute(ctx, tx)
		return err
	})
	require.NoError(err)

	stored, ok := db.ContinuousAgg(sql.PublicSchema, "cagg")
	require.True(ok)
	require.Equal(rec, stored)
	require.Equal(int32(1), rec.RawHypertableID)
	require.Equal(2*m.Spec.BucketWidth, rec.RefreshLag)
	require.Equal(cv.Definition, rec.UserViewQuery)

	matRel, ok := db.RelationByName(sql.InternalSchema, "ts_internal_caggtab")
	require.True(ok)
	require.Len(matRel.Columns, 4)
	require.Equal(db.CatalogOwner(), matRel.Owner)

	matHt, ok := db.Hypertable(matRel.OID)
	require.True(ok)
	require.Equal(rec.MatHypertableID, matHt.ID)
	require.Equal(10*weekInterval, matHt.IntervalLength)
	require.Equal("time_partition_col", matHt.PartitionColumnName)

	userView, ok := db.RelationByName(sql.PublicSchema, "cagg")
	require.True(ok)
	require.Equal(sql.ViewRelation, userView.Kind)
	require.Equal(db.User(), userView.Owner)

	q, ok := db.View(userView.OID)
	require.True(ok)
	require.Equal(matRel.OID, q.RangeTable[0].RelID)
	require.Equal(matRel.OID, q.TargetList[0].OrigTable)

	_, ok = db.RelationByName(sql.InternalSchema, "ts_internal_caggview")
	require.True(ok)

	job, ok := db.Job(rec.JobID)
	require.True(ok)
	require.Equal(m.Spec.BucketWidth, job.BucketWidth)

	triggers := db.Triggers(m.Spec.RelID)
	require.Len(triggers, 1)
	require.Equal(plan.InvalidationTriggerName, triggers[0].Name)
	require.Equal([]string{"1"}, triggers[0].Args)

	err = db.Transaction(ctx, func(tx *memory.Tx) error {
		_, err := plan.NewCreateContinuousAggregate(m, cv.Definition).Execute(ctx, tx)
		return err
	})
	require.Error(err)
	require.True(plan.ErrCreateContinuousAgg.Is(err))
}

func TestPostAssemblyRule(t *testing.T) {
	require := require.New(t)
	db := testCatalog(t)

	var called bool
	a := NewBuilder(db).AddPostAssemblyRule("check", func(ctx *sql.Context, a *Analyzer, s *Scope) error {
		called = true
		require.NotNil(s.Result())
		require.NotNil(s.Spec())
		return nil
	}).Build()

	_, err := a.Analyze(sql.NewEmptyContext(), parseView(t, db, basicView))
	require.NoError(err)
	require.True(called)
}
