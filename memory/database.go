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
	"sort"
	"sync"

	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrRelationExists is returned when creating a relation whose name is
	// taken.
	ErrRelationExists = errors.NewKind("relation %s already exists")
	// ErrAlreadyHypertable is returned when a table is turned into a
	// hypertable twice.
	ErrAlreadyHypertable = errors.NewKind("table %s is already a hypertable")
	// ErrColumnNotFound is returned when a column does not exist in a
	// relation.
	ErrColumnNotFound = errors.NewKind("column %q does not exist in %s")
	// ErrInvalidChunkInterval is returned for non positive chunk intervals.
	ErrInvalidChunkInterval = errors.NewKind("invalid chunk time interval %d")
	// ErrTriggerExists is returned when a trigger name is taken.
	ErrTriggerExists = errors.NewKind("trigger %q for relation %s already exists")
	// ErrPermissionDenied is returned when the current user cannot write
	// to a catalog table.
	ErrPermissionDenied = errors.NewKind("permission denied for table %s")
	// ErrConcurrentTransaction is returned when another transaction
	// committed first.
	ErrConcurrentTransaction = errors.NewKind("could not serialize access due to concurrent update")
	// ErrCommitHook is returned when a change was committed but could not
	// be propagated to the record store or the job scheduler.
	ErrCommitHook = errors.NewKind("continuous aggregate committed but not propagated")
)

const (
	// DefaultUser is the user running statements.
	DefaultUser = "postgres"
	// DefaultCatalogOwner is the owner of the extension catalog.
	DefaultCatalogOwner = "timescaledb"

	continuousAggTable = sql.InternalSchema + ".continuous_agg"
)

// RecordStore persists continuous aggregate records.
type RecordStore interface {
	Put(rec *plan.ContinuousAggRecord) error
}

// JobScheduler runs refresh jobs.
type JobScheduler interface {
	Schedule(ctx *sql.Context, id int32, job *plan.RefreshJob) error
}

// Option configures a Database.
type Option func(*Database)

// WithStore persists every committed continuous aggregate record.
func WithStore(s RecordStore) Option {
	return func(d *Database) { d.store = s }
}

// WithScheduler schedules every committed refresh job.
func WithScheduler(s JobScheduler) Option {
	return func(d *Database) { d.scheduler = s }
}

// WithUser sets the user running statements.
func WithUser(user string) Option {
	return func(d *Database) { d.user = user }
}

// WithCatalogOwner sets the owner of the extension catalog.
func WithCatalogOwner(owner string) Option {
	return func(d *Database) { d.owner = owner }
}

// Database is an in-memory catalog. It is safe for concurrent use.
type Database struct {
	mu        sync.RWMutex
	snap      *snapshot
	user      string
	owner     string
	store     RecordStore
	scheduler JobScheduler
}

var _ sql.Catalog = (*Database)(nil)

// NewDatabase creates a database holding only the built-in functions,
// operators and collations.
func NewDatabase(opts ...Option) *Database {
	d := &Database{
		snap:  newSnapshot(),
		user:  DefaultUser,
		owner: DefaultCatalogOwner,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// User returns the user running statements.
func (d *Database) User() string { return d.user }

// CatalogOwner returns the owner of the extension catalog.
func (d *Database) CatalogOwner() string { return d.owner }

func (d *Database) read() *snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Relation implements the sql.RelationLookup interface.
func (d *Database) Relation(oid sql.OID) (*sql.Relation, bool) { return d.read().Relation(oid) }

// RelationByName implements the sql.RelationLookup interface.
func (d *Database) RelationByName(schema, name string) (*sql.Relation, bool) {
	return d.read().RelationByName(schema, name)
}

// Hypertable implements the sql.HypertableLookup interface.
func (d *Database) Hypertable(relid sql.OID) (*sql.Hypertable, bool) {
	return d.read().Hypertable(relid)
}

// Function implements the sql.FunctionLookup interface.
func (d *Database) Function(oid sql.OID) (*sql.Function, bool) { return d.read().Function(oid) }

// FunctionsByName implements the sql.FunctionLookup interface.
func (d *Database) FunctionsByName(schema, name string) []*sql.Function {
	return d.read().FunctionsByName(schema, name)
}

// Aggregate implements the sql.AggregateLookup interface.
func (d *Database) Aggregate(oid sql.OID) (*sql.Aggregate, bool) { return d.read().Aggregate(oid) }

// Operator implements the sql.OperatorLookup interface.
func (d *Database) Operator(oid sql.OID) (*sql.Operator, bool) { return d.read().Operator(oid) }

// OperatorsByName implements the sql.OperatorLookup interface.
func (d *Database) OperatorsByName(name string) []*sql.Operator {
	return d.read().OperatorsByName(name)
}

// Collation implements the sql.CollationLookup interface.
func (d *Database) Collation(oid sql.OID) (*sql.Collation, bool) { return d.read().Collation(oid) }

// View returns the query of a view.
func (d *Database) View(oid sql.OID) (*plan.Query, bool) {
	q, ok := d.read().views[oid]
	return q, ok
}

// Triggers returns the triggers of a relation.
func (d *Database) Triggers(relid sql.OID) []*plan.Trigger {
	var triggers []*plan.Trigger
	for _, t := range d.read().triggers {
		if t.RelID == relid {
			triggers = append(triggers, t)
		}
	}
	return triggers
}

// Job returns a refresh job by id.
func (d *Database) Job(id int32) (*plan.RefreshJob, bool) {
	j, ok := d.read().jobs[id]
	return j, ok
}

// ContinuousAgg returns the record of the continuous aggregate with the
// given user view name.
func (d *Database) ContinuousAgg(schema, name string) (*plan.ContinuousAggRecord, bool) {
	rec, ok := d.read().caggs[qualify(schema, name)]
	return rec, ok
}

// ContinuousAggs returns all continuous aggregate records ordered by name.
func (d *Database) ContinuousAggs() []*plan.ContinuousAggRecord {
	snap := d.read()
	keys := make([]string, 0, len(snap.caggs))
	for k := range snap.caggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	recs := make([]*plan.ContinuousAggRecord, len(keys))
	for i, k := range keys {
		recs[i] = snap.caggs[k]
	}
	return recs
}

// AddRelation adds a relation. Columns are numbered in order and the
// relation gets a fresh OID unless it has one.
func (d *Database) AddRelation(rel *sql.Relation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rel.Kind == 0 {
		rel.Kind = sql.TableRelation
	}
	if rel.Owner == "" {
		rel.Owner = d.user
	}
	return d.snap.addRelation(rel)
}

// AddHypertable turns a table into a hypertable partitioned on column.
func (d *Database) AddHypertable(schema, name, column string, interval int64) (*sql.Hypertable, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rel, ok := d.snap.RelationByName(schema, name)
	if !ok {
		return nil, sql.ErrRelationNotFound.New(qualify(schema, name))
	}
	return d.snap.addHypertable(rel.OID, column, interval)
}

// AddFunction adds a function and, for aggregates, its metadata.
func (d *Database) AddFunction(fn *sql.Function, agg *sql.Aggregate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.addFunction(fn)
	if agg != nil {
		d.snap.aggregates[fn.OID] = agg
	}
}

// AddCollation adds a collation.
func (d *Database) AddCollation(c *sql.Collation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.collations[c.OID] = c
}

// Transaction runs fn on a private copy of the database and publishes the
// copy when fn succeeds. Nothing done by a failed fn is visible.
func (d *Database) Transaction(ctx *sql.Context, fn func(tx *Tx) error) error {
	d.mu.RLock()
	base := d.snap
	tx := &Tx{snapshot: base.clone(), user: d.user, owner: d.owner}
	d.mu.RUnlock()

	if err := fn(tx); err != nil {
		ctx.Logger().WithError(err).Debug("transaction rolled back")
		return err
	}

	d.mu.Lock()
	if d.snap != base {
		d.mu.Unlock()
		return ErrConcurrentTransaction.New()
	}
	d.snap = tx.snapshot
	d.mu.Unlock()

	return d.afterCommit(ctx, tx)
}

func (d *Database) afterCommit(ctx *sql.Context, tx *Tx) error {
	if d.store != nil {
		for _, rec := range tx.records {
			if err := d.store.Put(rec); err != nil {
				return ErrCommitHook.Wrap(err)
			}
		}
	}

	if d.scheduler != nil {
		for _, id := range tx.jobs {
			if err := d.scheduler.Schedule(ctx, id, tx.snapshot.jobs[id]); err != nil {
				return ErrCommitHook.Wrap(err)
			}
		}
	}
	return nil
}

// Tx is a transaction on a Database. It is not safe for concurrent use.
type Tx struct {
	*snapshot
	user  string
	owner string

	records []*plan.ContinuousAggRecord
	jobs    []int32
}

var _ sql.Catalog = (*Tx)(nil)
var _ plan.ContinuousAggCatalog = (*Tx)(nil)

// User returns the current user of the transaction.
func (tx *Tx) User() string { return tx.user }

// BecomeCatalogOwner implements the plan.ContinuousAggCatalog interface.
func (tx *Tx) BecomeCatalogOwner(ctx *sql.Context) (func(), error) {
	prev := tx.user
	tx.user = tx.owner
	ctx.Logger().Debugf("switched to catalog owner %s", tx.owner)
	return func() { tx.user = prev }, nil
}

// CreateTable implements the plan.ContinuousAggCatalog interface.
func (tx *Tx) CreateTable(ctx *sql.Context, schema, name string, columns []*sql.Column) (*sql.Relation, error) {
	return tx.createRelation(schema, name, sql.TableRelation, columns)
}

func (tx *Tx) createRelation(schema, name string, kind sql.RelationKind, columns []*sql.Column) (*sql.Relation, error) {
	cols := make([]*sql.Column, len(columns))
	for i, c := range columns {
		nc := *c
		cols[i] = &nc
	}

	rel := &sql.Relation{
		Schema:  schema,
		Name:    name,
		Kind:    kind,
		Owner:   tx.user,
		Columns: cols,
	}
	if err := tx.addRelation(rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// CreateHypertable implements the plan.ContinuousAggCatalog interface.
func (tx *Tx) CreateHypertable(ctx *sql.Context, relid sql.OID, column string, interval int64) (*sql.Hypertable, error) {
	return tx.addHypertable(relid, column, interval)
}

// CreateView implements the plan.ContinuousAggCatalog interface.
func (tx *Tx) CreateView(ctx *sql.Context, schema, name string, columns []*sql.Column, q *plan.Query) (*sql.Relation, error) {
	rel, err := tx.createRelation(schema, name, sql.ViewRelation, columns)
	if err != nil {
		return nil, err
	}
	tx.views[rel.OID] = q
	return rel, nil
}

// CreateTrigger implements the plan.ContinuousAggCatalog interface.
func (tx *Tx) CreateTrigger(ctx *sql.Context, t *plan.Trigger) error {
	rel, ok := tx.Relation(t.RelID)
	if !ok {
		return sql.ErrRelationNotFound.New(t.RelID.String())
	}
	for _, other := range tx.triggers {
		if other.RelID == t.RelID && other.Name == t.Name {
			return ErrTriggerExists.New(t.Name, rel.QualifiedName())
		}
	}
	if len(tx.FunctionsByName(t.FuncSchema, t.FuncName)) == 0 {
		return sql.ErrFunctionNotFound.New(t.FuncSchema + "." + t.FuncName)
	}
	tx.triggers = append(tx.triggers, t)
	return nil
}

// AddRefreshJob implements the plan.ContinuousAggCatalog interface.
func (tx *Tx) AddRefreshJob(ctx *sql.Context, job *plan.RefreshJob) (int32, error) {
	id := tx.nextJobID
	tx.nextJobID++
	tx.snapshot.jobs[id] = job
	tx.jobs = append(tx.jobs, id)
	return id, nil
}

// InsertContinuousAgg implements the plan.ContinuousAggCatalog interface.
// Only the catalog owner can insert records.
func (tx *Tx) InsertContinuousAgg(ctx *sql.Context, rec *plan.ContinuousAggRecord) error {
	if tx.user != tx.owner {
		return ErrPermissionDenied.New(continuousAggTable)
	}
	key := qualify(rec.UserViewSchema, rec.UserViewName)
	if _, ok := tx.caggs[key]; ok {
		return sql.ErrDuplicateDefinition.New(key)
	}
	tx.caggs[key] = rec
	tx.records = append(tx.records, rec)
	return nil
}

func sortFunctions(fns []*sql.Function) {
	sort.Slice(fns, func(i, j int) bool { return fns[i].OID < fns[j].OID })
}

func sortOperators(ops []*sql.Operator) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].OID < ops[j].OID })
}
