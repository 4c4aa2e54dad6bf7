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

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

func conditions(t *testing.T, db *Database) *sql.Relation {
	t.Helper()
	require := require.New(t)

	rel := &sql.Relation{
		Schema: sql.PublicSchema,
		Name:   "conditions",
		Columns: []*sql.Column{
			{Name: "time", Type: sql.TimestampTZ, Typmod: -1},
			{Name: "device", Type: sql.Int32, Typmod: -1},
			{Name: "temperature", Type: sql.Float64, Typmod: -1},
		},
	}
	require.NoError(db.AddRelation(rel))
	return rel
}

func TestDatabase_Builtins(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()

	fns := db.FunctionsByName(sql.PublicSchema, "time_bucket")
	require.Len(fns, 7)
	for _, fn := range fns {
		require.Equal(sql.Immutable, fn.Volatility)
	}

	avg := db.FunctionsByName("", "avg")
	require.NotEmpty(avg)
	for _, fn := range avg {
		_, ok := db.Aggregate(fn.OID)
		require.True(ok, fn.Signature())
	}

	fn, ok := db.Function(2105)
	require.True(ok)
	require.Equal("avg(double precision)", fn.Signature())

	_, ok = db.Function(FinalizeAggOID)
	require.True(ok)
	agg, ok := db.Aggregate(FinalizeAggOID)
	require.True(ok)
	require.True(agg.CombineFunc.IsValid())

	for _, op := range db.OperatorsByName(">") {
		fn, ok := db.Function(op.FuncOID)
		require.True(ok, op.Name)
		require.Equal(sql.Immutable, fn.Volatility)
	}

	eq, lt, hashable := sql.SortGroupOperators(db, sql.Int32)
	require.Equal(sql.OID(96), eq)
	require.Equal(sql.OID(97), lt)
	require.True(hashable)

	c, ok := db.Collation(sql.CCollationOID)
	require.True(ok)
	require.Equal("C", c.Name)
}

func TestDatabase_AddRelation(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()

	rel := conditions(t, db)
	require.True(rel.OID >= FirstNormalOID)
	require.Equal(DefaultUser, rel.Owner)
	require.Equal(sql.TableRelation, rel.Kind)
	require.Equal(3, rel.Columns[2].Attno)

	found, ok := db.RelationByName("", "conditions")
	require.True(ok)
	require.Equal(rel, found)

	err := db.AddRelation(&sql.Relation{Schema: sql.PublicSchema, Name: "conditions"})
	require.Error(err)
	require.True(ErrRelationExists.Is(err))
}

func TestDatabase_AddHypertable(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	rel := conditions(t, db)

	ht, err := db.AddHypertable("", "conditions", "time", 86400000000)
	require.NoError(err)
	require.Equal(int32(1), ht.ID)
	require.Equal(1, ht.PartitionColumn)
	require.Equal(sql.TimestampTZ, ht.PartitionType)

	found, ok := db.Hypertable(rel.OID)
	require.True(ok)
	require.Equal(ht, found)

	_, err = db.AddHypertable("", "conditions", "time", 1)
	require.True(ErrAlreadyHypertable.Is(err))

	_, err = db.AddHypertable("", "missing", "time", 1)
	require.True(sql.ErrRelationNotFound.Is(err))
}

func TestDatabase_TransactionRollback(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	ctx := sql.NewEmptyContext()

	err := db.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.CreateTable(ctx, sql.InternalSchema, "t", []*sql.Column{{Name: "a", Type: sql.Int32}})
		require.NoError(err)
		_, ok := tx.RelationByName(sql.InternalSchema, "t")
		require.True(ok)
		return ErrInvalidFixture.New("boom")
	})
	require.True(ErrInvalidFixture.Is(err))

	_, ok := db.RelationByName(sql.InternalSchema, "t")
	require.False(ok)
}

func TestDatabase_TransactionCommit(t *testing.T) {
	require := require.New(t)
	store := &recordingStore{}
	sched := &recordingScheduler{}
	db := NewDatabase(WithStore(store), WithScheduler(sched))
	ctx := sql.NewEmptyContext()

	rec := &plan.ContinuousAggRecord{UserViewSchema: "public", UserViewName: "v"}
	err := db.Transaction(ctx, func(tx *Tx) error {
		rel, err := tx.CreateTable(ctx, sql.InternalSchema, "t", []*sql.Column{{Name: "a", Type: sql.Int32}})
		require.NoError(err)
		require.Equal(DefaultUser, rel.Owner)

		id, err := tx.AddRefreshJob(ctx, &plan.RefreshJob{Name: "public.v", BucketWidth: 10})
		require.NoError(err)
		rec.JobID = id

		err = tx.InsertContinuousAgg(ctx, rec)
		require.True(ErrPermissionDenied.Is(err))

		restore, err := tx.BecomeCatalogOwner(ctx)
		require.NoError(err)
		require.Equal(DefaultCatalogOwner, tx.User())
		err = tx.InsertContinuousAgg(ctx, rec)
		restore()
		require.Equal(DefaultUser, tx.User())
		return err
	})
	require.NoError(err)

	_, ok := db.RelationByName(sql.InternalSchema, "t")
	require.True(ok)

	found, ok := db.ContinuousAgg("public", "v")
	require.True(ok)
	require.Equal(rec, found)
	require.Equal([]*plan.ContinuousAggRecord{rec}, db.ContinuousAggs())

	job, ok := db.Job(rec.JobID)
	require.True(ok)
	require.Equal(int64(10), job.BucketWidth)

	require.Equal([]*plan.ContinuousAggRecord{rec}, store.records)
	require.Equal([]int32{rec.JobID}, sched.ids)
}

func TestDatabase_CreateTrigger(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	rel := conditions(t, db)
	ctx := sql.NewEmptyContext()

	trigger := &plan.Trigger{
		Name:       plan.InvalidationTriggerName,
		RelID:      rel.OID,
		FuncSchema: sql.InternalSchema,
		FuncName:   plan.InvalidationTriggerFunc,
		Args:       []string{"1"},
	}

	err := db.Transaction(ctx, func(tx *Tx) error {
		require.NoError(tx.CreateTrigger(ctx, trigger))
		err := tx.CreateTrigger(ctx, trigger)
		require.True(ErrTriggerExists.Is(err))
		return nil
	})
	require.NoError(err)
	require.Equal([]*plan.Trigger{trigger}, db.Triggers(rel.OID))

	err = db.Transaction(ctx, func(tx *Tx) error {
		return tx.CreateTrigger(ctx, &plan.Trigger{Name: "x", RelID: 1})
	})
	require.True(sql.ErrRelationNotFound.Is(err))
}

func TestDatabase_ConcurrentTransaction(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	ctx := sql.NewEmptyContext()

	err := db.Transaction(ctx, func(tx *Tx) error {
		return db.Transaction(ctx, func(inner *Tx) error {
			_, err := inner.CreateTable(ctx, "public", "a", nil)
			return err
		})
	})
	require.True(ErrConcurrentTransaction.Is(err))

	_, ok := db.RelationByName("public", "a")
	require.True(ok)
}

type recordingStore struct {
	records []*plan.ContinuousAggRecord
}

func (s *recordingStore) Put(rec *plan.ContinuousAggRecord) error {
	s.records = append(s.records, rec)
	return nil
}

type recordingScheduler struct {
	ids []int32
}

func (s *recordingScheduler) Schedule(ctx *sql.Context, id int32, job *plan.RefreshJob) error {
	s.ids = append(s.ids, id)
	return nil
}
