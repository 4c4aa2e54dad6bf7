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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/expression"
)

type call struct {
	op   string
	name string
	user string
}

type recordingCatalog struct {
	user   string
	calls  []call
	failOn string
	nextID sql.OID

	trigger *Trigger
	job     *RefreshJob
	record  *ContinuousAggRecord
	views   map[string]*Query
}

func newRecordingCatalog() *recordingCatalog {
	return &recordingCatalog{user: "postgres", nextID: 500, views: make(map[string]*Query)}
}

func (c *recordingCatalog) log(op, name string) error {
	c.calls = append(c.calls, call{op, name, c.user})
	if op == c.failOn {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (c *recordingCatalog) CreateTable(ctx *sql.Context, schema, name string, columns []*sql.Column) (*sql.Relation, error) {
	if err := c.log("table", schema+"."+name); err != nil {
		return nil, err
	}
	c.nextID++
	return &sql.Relation{OID: c.nextID, Schema: schema, Name: name, Kind: sql.TableRelation, Columns: columns}, nil
}

func (c *recordingCatalog) CreateHypertable(ctx *sql.Context, relid sql.OID, column string, interval int64) (*sql.Hypertable, error) {
	if err := c.log("hypertable", fmt.Sprintf("%s/%d", column, interval)); err != nil {
		return nil, err
	}
	return &sql.Hypertable{ID: 7, RelID: relid, PartitionColumnName: column, IntervalLength: interval}, nil
}

func (c *recordingCatalog) CreateView(ctx *sql.Context, schema, name string, columns []*sql.Column, q *Query) (*sql.Relation, error) {
	if err := c.log("view", schema+"."+name); err != nil {
		return nil, err
	}
	c.views[schema+"."+name] = q
	c.nextID++
	return &sql.Relation{OID: c.nextID, Schema: schema, Name: name, Kind: sql.ViewRelation, Columns: columns}, nil
}

func (c *recordingCatalog) CreateTrigger(ctx *sql.Context, t *Trigger) error {
	c.trigger = t
	return c.log("trigger", t.Name)
}

func (c *recordingCatalog) AddRefreshJob(ctx *sql.Context, job *RefreshJob) (int32, error) {
	c.job = job
	return 1000, c.log("job", job.Name)
}

func (c *recordingCatalog) InsertContinuousAgg(ctx *sql.Context, rec *ContinuousAggRecord) error {
	c.record = rec
	return c.log("record", rec.UserViewName)
}

func (c *recordingCatalog) BecomeCatalogOwner(ctx *sql.Context) (func(), error) {
	if err := c.log("owner", ""); err != nil {
		return nil, err
	}
	prev := c.user
	c.user = "timescaledb"
	return func() { c.user = prev }, nil
}

func relationQuery(schema, name string, cols ...string) *Query {
	q := &Query{
		Command: CommandSelect,
		RangeTable: []*RangeTableEntry{{
			Kind:     RTERelation,
			RelID:    100,
			Schema:   schema,
			Name:     name,
			ColNames: cols,
			Inh:      true,
		}},
		JoinTree: &FromExpr{FromList: []FromItem{&RangeTableRef{Index: 1}}},
	}
	for i, c := range cols {
		q.TargetList = append(q.TargetList, &TargetEntry{
			Expr:       expression.NewColumnRef(1, i+1, c, sql.Int64, -1, sql.InvalidOID),
			Resno:      i + 1,
			Name:       c,
			OrigTable:  100,
			OrigColumn: i + 1,
		})
	}
	return q
}

func testMaterialization() *Materialization {
	return &Materialization{
		Spec: BucketingSpec{
			HypertableID:        3,
			RelID:               100,
			PartitionColumnName: "ts",
			PartitionType:       sql.Int64,
			PartitionInterval:   1000,
			BucketWidth:         10,
		},
		Columns: []MaterializationColumn{
			{Name: "time_partition_col", Type: sql.Int64, Typmod: -1, Role: RolePartitionBucket},
			{Name: "chunk_id", Type: sql.Int32, Typmod: -1, Role: RoleChunkLocator},
		},
		PopulateQuery:     relationQuery("public", "readings", "ts"),
		ViewQuery:         relationQuery(sql.InternalSchema, "ts_internal_rtab", "time_partition_col"),
		UserViewSchema:    "public",
		UserViewName:      "r",
		MatTableSchema:    sql.InternalSchema,
		MatTableName:      "ts_internal_rtab",
		PartialViewSchema: sql.InternalSchema,
		PartialViewName:   "ts_internal_rview",
		Fingerprint:       99,
	}
}

func TestCreateContinuousAggregate(t *testing.T) {
	require := require.New(t)

	cat := newRecordingCatalog()
	m := testMaterialization()
	rec, err := NewCreateContinuousAggregate(m, "SELECT 1").Execute(sql.NewEmptyContext(), cat)
	require.NoError(err)

	require.Equal([]call{
		{"owner", "", "postgres"},
		{"table", "_timescaledb_internal.ts_internal_rtab", "timescaledb"},
		{"hypertable", "time_partition_col/10000", "postgres"},
		{"view", "public.r", "postgres"},
		{"owner", "", "postgres"},
		{"view", "_timescaledb_internal.ts_internal_rview", "timescaledb"},
		{"job", "public.r", "postgres"},
		{"owner", "", "postgres"},
		{"record", "r", "timescaledb"},
		{"trigger", InvalidationTriggerName, "postgres"},
	}, cat.calls)

	require.Equal(&ContinuousAggRecord{
		MatHypertableID:   7,
		RawHypertableID:   3,
		UserViewSchema:    "public",
		UserViewName:      "r",
		PartialViewSchema: sql.InternalSchema,
		PartialViewName:   "ts_internal_rview",
		BucketWidth:       10,
		JobID:             1000,
		RefreshLag:        20,
		UserViewQuery:     "SELECT 1",
		Fingerprint:       99,
	}, rec)
	require.Equal(rec, cat.record)

	require.Equal(&RefreshJob{
		Name:            "public.r",
		RawHypertableID: 3,
		BucketWidth:     10,
		PartitionType:   sql.Int64,
	}, cat.job)

	require.Equal(sql.OID(100), cat.trigger.RelID)
	require.Equal([]string{"3"}, cat.trigger.Args)
	require.Equal(InvalidationTriggerFunc, cat.trigger.FuncName)
	require.True(cat.trigger.ForEachRow)

	view := cat.views["public.r"]
	require.Equal(sql.OID(501), view.RangeTable[0].RelID)
	require.Equal(sql.OID(501), view.TargetList[0].OrigTable)
	require.Equal(sql.OID(100), m.ViewQuery.RangeTable[0].RelID)
	require.Equal(sql.OID(100), m.ViewQuery.TargetList[0].OrigTable)
}

func TestCreateContinuousAggregateFailure(t *testing.T) {
	for _, op := range []string{"owner", "table", "hypertable", "view", "job", "record", "trigger"} {
		t.Run(op, func(t *testing.T) {
			require := require.New(t)

			cat := newRecordingCatalog()
			cat.failOn = op
			_, err := NewCreateContinuousAggregate(testMaterialization(), "").Execute(sql.NewEmptyContext(), cat)
			require.Error(err)
			require.True(ErrCreateContinuousAgg.Is(err))
			require.Equal(op, cat.calls[len(cat.calls)-1].op)
			require.Equal("postgres", cat.user)
		})
	}
}

func TestDefaultRefreshLag(t *testing.T) {
	require.Equal(t, int64(7200000000), DefaultRefreshLag(3600000000))
}
