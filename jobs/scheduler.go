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

// Package jobs registers the background jobs refreshing continuous
// aggregates and runs them on a cron scheduler.
package jobs

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-errors.v1"
)

const (
	// DefaultFloor is the shortest interval between two refreshes.
	DefaultFloor = time.Minute
	// DefaultIntegerInterval is the refresh interval of continuous
	// aggregates bucketed on integer columns, whose width has no unit.
	DefaultIntegerInterval = time.Hour
)

var (
	// ErrJobNotFound is returned when a job is not scheduled.
	ErrJobNotFound = errors.NewKind("refresh job %d is not scheduled")
	// ErrInvalidBucketWidth is returned for jobs whose width cannot give an
	// interval.
	ErrInvalidBucketWidth = errors.NewKind("invalid bucket width %d for refresh job %q")
)

// RefreshFunc refreshes the continuous aggregate of a job.
type RefreshFunc func(id int32, job *plan.RefreshJob) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFloor sets the shortest interval between two refreshes.
func WithFloor(d time.Duration) Option {
	return func(s *Scheduler) { s.floor = d }
}

// WithLogger sets the logger used by the scheduler and its jobs.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithRefresh sets the function run on every tick of a job. By default a
// tick is only logged.
func WithRefresh(fn RefreshFunc) Option {
	return func(s *Scheduler) { s.refresh = fn }
}

// Scheduler runs refresh jobs at an interval derived from their bucket
// width. It is safe for concurrent use.
type Scheduler struct {
	floor   time.Duration
	log     *logrus.Entry
	refresh RefreshFunc
	cron    *cron.Cron

	mu      sync.Mutex
	entries map[int32]cron.EntryID
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		floor:   DefaultFloor,
		entries: make(map[int32]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	s.log = s.log.WithField("system", "jobs")

	logger := cron.PrintfLogger(s.log)
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return s
}

// Interval returns how often the given job refreshes. Time buckets refresh
// once per bucket, never more often than the floor.
func (s *Scheduler) Interval(job *plan.RefreshJob) (time.Duration, error) {
	if job.BucketWidth <= 0 {
		return 0, ErrInvalidBucketWidth.New(job.BucketWidth, job.Name)
	}

	d := DefaultIntegerInterval
	if !job.PartitionType.IsInteger() {
		d = time.Duration(job.BucketWidth) * time.Microsecond
	}
	if d < s.floor {
		d = s.floor
	}
	return d, nil
}

// Schedule registers the job, replacing any job with the same id.
func (s *Scheduler) Schedule(ctx *sql.Context, id int32, job *plan.RefreshJob) error {
	interval, err := s.Interval(job)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[id]; ok {
		s.cron.Remove(prev)
	}
	s.entries[id] = s.cron.Schedule(cron.Every(interval), &refreshJob{
		id:      id,
		job:     job,
		refresh: s.refresh,
		log: s.log.WithFields(logrus.Fields{
			"job":        id,
			"name":       job.Name,
			"hypertable": job.RawHypertableID,
		}),
	})

	ctx.Logger().WithFields(logrus.Fields{
		"job":      id,
		"interval": interval,
	}).Infof("scheduled refresh of %s", job.Name)
	return nil
}

// Unschedule removes a job.
func (s *Scheduler) Unschedule(id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return ErrJobNotFound.New(id)
	}
	s.cron.Remove(entry)
	delete(s.entries, id)
	return nil
}

// Next returns the next time the job runs. It is the zero time while the
// scheduler is stopped.
func (s *Scheduler) Next(id int32) (time.Time, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, ErrJobNotFound.New(id)
	}
	return s.cron.Entry(entry).Next, nil
}

// RunNow runs the job synchronously.
func (s *Scheduler) RunNow(id int32) error {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound.New(id)
	}
	return s.cron.Entry(entry).Job.(*refreshJob).run()
}

// Jobs returns the ids of the scheduled jobs.
func (s *Scheduler) Jobs() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int32, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.log.Debug("starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Debug("scheduler stopped")
}

type refreshJob struct {
	id      int32
	job     *plan.RefreshJob
	refresh RefreshFunc
	log     *logrus.Entry
}

func (j *refreshJob) Run() {
	if err := j.run(); err != nil {
		j.log.WithError(err).Error("refresh failed")
	}
}

func (j *refreshJob) run() error {
	start := time.Now()
	if j.refresh == nil {
		j.log.Info("refresh requested")
		return nil
	}

	if err := j.refresh(j.id, j.job); err != nil {
		return err
	}
	j.log.WithField("elapsed", time.Since(start)).Info("refreshed")
	return nil
}
