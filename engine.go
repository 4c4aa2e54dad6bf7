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

package cagg

import (
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-cagg.v0/config"
	"gopkg.in/src-d/go-cagg.v0/jobs"
	"gopkg.in/src-d/go-cagg.v0/memory"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/analyzer"
	"gopkg.in/src-d/go-cagg.v0/sql/parse"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-cagg.v0/store"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrNotContinuousAgg is returned for views without the
// timescaledb.continuous option.
var ErrNotContinuousAgg = errors.NewKind("view %s is not a continuous aggregate: missing " + plan.ContinuousOption + " option")

// Engine creates continuous aggregates.
type Engine struct {
	Catalog   *memory.Database
	Analyzer  *analyzer.Analyzer
	Store     *store.Store
	Scheduler *jobs.Scheduler

	// The analyzer keeps a debug context and cannot run concurrently.
	mu sync.Mutex
}

// New creates a new Engine.
func New(db *memory.Database, a *analyzer.Analyzer) *Engine {
	return &Engine{Catalog: db, Analyzer: a}
}

// NewDefault creates a new Engine with an empty catalog and the default
// analyzer.
func NewDefault() *Engine {
	db := memory.NewDatabase()
	return New(db, analyzer.NewDefault(db))
}

// NewFromConfig creates an Engine from a configuration: it opens the
// record store, starts the job scheduler and loads the catalog fixture.
func NewFromConfig(c *config.Config) (*Engine, error) {
	lvl, err := c.Level()
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(lvl)

	floor, err := c.Floor()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Scheduler: jobs.NewScheduler(jobs.WithFloor(floor)),
	}

	opts := []memory.Option{memory.WithScheduler(e.Scheduler)}
	if c.StorePath != "" {
		e.Store, err = store.Open(c.StorePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, memory.WithStore(e.Store))
	}
	if c.User != "" {
		opts = append(opts, memory.WithUser(c.User))
	}
	if c.CatalogOwner != "" {
		opts = append(opts, memory.WithCatalogOwner(c.CatalogOwner))
	}

	e.Catalog = memory.NewDatabase(opts...)
	if c.Catalog != "" {
		if err := e.Catalog.LoadFixture(c.Catalog); err != nil {
			_ = e.Close()
			return nil, err
		}
	}

	b := analyzer.NewBuilder(e.Catalog)
	if c.Debug {
		b = b.WithDebug()
	}
	if c.Verbose {
		b = b.WithVerbose()
	}
	e.Analyzer = b.Build()

	e.Scheduler.Start()
	return e, nil
}

// Explain parses and analyzes a CREATE VIEW statement without creating
// anything.
func (e *Engine) Explain(ctx *sql.Context, query string) (*plan.Materialization, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cv, err := e.parse(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.Analyzer.Analyze(ctx, cv)
}

// Create creates the continuous aggregate defined by a CREATE VIEW
// statement and returns its catalog record.
func (e *Engine) Create(ctx *sql.Context, query string) (*plan.ContinuousAggRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cv, err := e.parse(ctx, query)
	if err != nil {
		return nil, err
	}

	m, err := e.Analyzer.Analyze(ctx, cv)
	if err != nil {
		return nil, err
	}

	var rec *plan.ContinuousAggRecord
	err = e.Catalog.Transaction(ctx, func(tx *memory.Tx) error {
		var err error
		rec, err = plan.NewCreateContinuousAggregate(m, cv.Definition).Execute(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx.Logger().WithFields(logrus.Fields{
		"view": rec.UserViewSchema + "." + rec.UserViewName,
		"job":  rec.JobID,
	}).Info("created continuous aggregate")
	return rec, nil
}

func (e *Engine) parse(ctx *sql.Context, query string) (*plan.CreateView, error) {
	cv, err := parse.Parse(ctx, e.Catalog, query)
	if err != nil {
		return nil, err
	}

	if !cv.IsContinuous() {
		return nil, ErrNotContinuousAgg.New(cv.Name)
	}

	schema := cv.Schema
	if schema == "" {
		schema = sql.PublicSchema
	}
	if _, ok := e.Catalog.ContinuousAgg(schema, cv.Name); ok {
		return nil, sql.ErrDuplicateDefinition.New(cv.Name)
	}
	if _, ok := e.Catalog.RelationByName(schema, cv.Name); ok {
		return nil, sql.ErrDuplicateDefinition.New(cv.Name)
	}

	if e.Store != nil {
		_, err := e.Store.Get(schema, cv.Name)
		if err == nil {
			return nil, sql.ErrDuplicateDefinition.New(cv.Name)
		}
		if !store.ErrRecordNotFound.Is(err) {
			return nil, err
		}
	}
	return cv, nil
}

// ContinuousAggs returns the records of every continuous aggregate.
func (e *Engine) ContinuousAggs() []*plan.ContinuousAggRecord {
	return e.Catalog.ContinuousAggs()
}

// Close stops the scheduler and closes the record store.
func (e *Engine) Close() error {
	if e.Scheduler != nil {
		e.Scheduler.Stop()
	}
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}
