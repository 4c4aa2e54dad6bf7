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
	"strconv"

	opentracing "github.com/opentracing/opentracing-go"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrCreateContinuousAgg is returned when one of the objects backing a
	// continuous aggregate cannot be created.
	ErrCreateContinuousAgg = errors.NewKind("unable to create continuous aggregate %s")

	// ErrBadTriggerArgument is returned when the trigger argument does not
	// fit in a name.
	ErrBadTriggerArgument = errors.NewKind("bad argument to continuous aggregate trigger: %s")
)

const (
	// InvalidationTriggerName is the name of the trigger installed on the
	// raw hypertable.
	InvalidationTriggerName = "ts_cagg_invalidation_trigger"
	// InvalidationTriggerFunc is the function the trigger calls.
	InvalidationTriggerFunc = "continuous_agg_invalidation_trigger"
	// MatPartitionIntervalFactor multiplies the raw hypertable interval to
	// get the interval of the materialization hypertable.
	MatPartitionIntervalFactor = 10
	// MaxNameLength is the longest identifier the catalog accepts.
	MaxNameLength = 63
)

// Trigger is a row trigger definition.
type Trigger struct {
	Name       string
	RelID      sql.OID
	FuncSchema string
	FuncName   string
	Args       []string
	Timing     string
	Events     []string
	ForEachRow bool
}

// RefreshJob describes the background job keeping a continuous aggregate
// up to date.
type RefreshJob struct {
	Name            string
	RawHypertableID int32
	BucketWidth     int64
	PartitionType   sql.Type
}

// ContinuousAggRecord is the catalog entry of a continuous aggregate.
type ContinuousAggRecord struct {
	MatHypertableID   int32
	RawHypertableID   int32
	UserViewSchema    string
	UserViewName      string
	PartialViewSchema string
	PartialViewName   string
	BucketWidth       int64
	JobID             int32
	RefreshLag        int64
	UserViewQuery     string
	Fingerprint       uint64
}

// DefaultRefreshLag returns the refresh lag used for a bucket width.
func DefaultRefreshLag(bucketWidth int64) int64 {
	return 2 * bucketWidth
}

// ContinuousAggCatalog is the set of catalog operations needed to create a
// continuous aggregate. Implementations are expected to run all of them in
// the enclosing transaction.
type ContinuousAggCatalog interface {
	CreateTable(ctx *sql.Context, schema, name string, columns []*sql.Column) (*sql.Relation, error)
	CreateHypertable(ctx *sql.Context, relid sql.OID, column string, interval int64) (*sql.Hypertable, error)
	CreateView(ctx *sql.Context, schema, name string, columns []*sql.Column, q *Query) (*sql.Relation, error)
	CreateTrigger(ctx *sql.Context, t *Trigger) error
	AddRefreshJob(ctx *sql.Context, job *RefreshJob) (int32, error)
	InsertContinuousAgg(ctx *sql.Context, rec *ContinuousAggRecord) error
	// BecomeCatalogOwner switches the current user to the owner of the
	// catalog and returns a function restoring the previous user.
	BecomeCatalogOwner(ctx *sql.Context) (restore func(), err error)
}

// CreateContinuousAggregate creates every object backing a continuous
// aggregate from its rewritten definition.
type CreateContinuousAggregate struct {
	Materialization *Materialization
	// Definition is the text of the user query.
	Definition string
}

// NewCreateContinuousAggregate creates a new CreateContinuousAggregate node.
func NewCreateContinuousAggregate(m *Materialization, definition string) *CreateContinuousAggregate {
	return &CreateContinuousAggregate{Materialization: m, Definition: definition}
}

// Execute creates, in order, the materialization hypertable, the user view,
// the partial view, the refresh job, the catalog record and the
// invalidation trigger.
func (c *CreateContinuousAggregate) Execute(ctx *sql.Context, cat ContinuousAggCatalog) (*ContinuousAggRecord, error) {
	m := c.Materialization
	span, ctx := ctx.Span("create_continuous_aggregate", opentracing.Tags{
		"view": m.UserViewName,
	})
	defer span.Finish()

	fail := func(err error) (*ContinuousAggRecord, error) {
		return nil, ErrCreateContinuousAgg.Wrap(err, m.UserViewName)
	}

	var matRel *sql.Relation
	err := asOwner(ctx, cat, m.MatTableSchema, func() error {
		var err error
		matRel, err = cat.CreateTable(ctx, m.MatTableSchema, m.MatTableName, m.TableColumns())
		return err
	})
	if err != nil {
		return fail(err)
	}

	partCol := m.Columns[m.PartitionColumn].Name
	matHt, err := cat.CreateHypertable(ctx, matRel.OID, partCol, MatPartitionIntervalFactor*m.Spec.PartitionInterval)
	if err != nil {
		return fail(err)
	}
	ctx.Logger().WithField("hypertable", matHt.ID).Debugf("created materialization table %s", matRel.QualifiedName())

	viewQuery := m.ViewQuery.Copy()
	rte := viewQuery.RangeTable[0]
	rte.RelID = matRel.OID
	rte.Schema = matRel.Schema
	rte.Name = matRel.Name
	for _, t := range viewQuery.TargetList {
		if t.OrigColumn > 0 {
			t.OrigTable = matRel.OID
		}
	}

	err = asOwner(ctx, cat, m.UserViewSchema, func() error {
		_, err := cat.CreateView(ctx, m.UserViewSchema, m.UserViewName, viewQuery.OutputColumns(), viewQuery)
		return err
	})
	if err != nil {
		return fail(err)
	}

	err = asOwner(ctx, cat, m.PartialViewSchema, func() error {
		_, err := cat.CreateView(ctx, m.PartialViewSchema, m.PartialViewName, m.PopulateQuery.OutputColumns(), m.PopulateQuery)
		return err
	})
	if err != nil {
		return fail(err)
	}

	jobID, err := cat.AddRefreshJob(ctx, &RefreshJob{
		Name:            m.UserViewSchema + "." + m.UserViewName,
		RawHypertableID: m.Spec.HypertableID,
		BucketWidth:     m.Spec.BucketWidth,
		PartitionType:   m.Spec.PartitionType,
	})
	if err != nil {
		return fail(err)
	}

	rec := &ContinuousAggRecord{
		MatHypertableID:   matHt.ID,
		RawHypertableID:   m.Spec.HypertableID,
		UserViewSchema:    m.UserViewSchema,
		UserViewName:      m.UserViewName,
		PartialViewSchema: m.PartialViewSchema,
		PartialViewName:   m.PartialViewName,
		BucketWidth:       m.Spec.BucketWidth,
		JobID:             jobID,
		RefreshLag:        DefaultRefreshLag(m.Spec.BucketWidth),
		UserViewQuery:     c.Definition,
		Fingerprint:       m.Fingerprint,
	}

	err = asOwner(ctx, cat, sql.InternalSchema, func() error {
		return cat.InsertContinuousAgg(ctx, rec)
	})
	if err != nil {
		return fail(err)
	}

	arg := strconv.FormatInt(int64(m.Spec.HypertableID), 10)
	if len(arg) > MaxNameLength {
		return fail(ErrBadTriggerArgument.New(arg))
	}

	err = cat.CreateTrigger(ctx, &Trigger{
		Name:       InvalidationTriggerName,
		RelID:      m.Spec.RelID,
		FuncSchema: sql.InternalSchema,
		FuncName:   InvalidationTriggerFunc,
		Args:       []string{arg},
		Timing:     "AFTER",
		Events:     []string{"INSERT", "UPDATE", "DELETE"},
		ForEachRow: true,
	})
	if err != nil {
		return fail(err)
	}

	return rec, nil
}

// asOwner runs fn as the catalog owner when schema is the internal schema.
func asOwner(ctx *sql.Context, cat ContinuousAggCatalog, schema string, fn func() error) error {
	if schema != sql.InternalSchema {
		return fn()
	}

	restore, err := cat.BecomeCatalogOwner(ctx)
	if err != nil {
		return err
	}
	defer restore()

	return fn()
}
