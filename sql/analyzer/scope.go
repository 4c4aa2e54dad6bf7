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
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

// Scope is the state of one analysis. It is created for every Analyze call
// and filled in by the rules.
type Scope struct {
	view     *plan.CreateView
	query    *plan.Query
	catalog  sql.Catalog
	registry *Registry

	rtIndex    int
	rte        *plan.RangeTableEntry
	relation   *sql.Relation
	hypertable *sql.Hypertable
	spec       *plan.BucketingSpec

	mat          *matTableColumnInfo
	finalTargets []*plan.TargetEntry
	having       sql.Expression
	locator      *plan.SortGroupClause

	result *plan.Materialization
}

// Query returns the query being analyzed.
func (s *Scope) Query() *plan.Query { return s.query }

// Spec returns the bucketing specification once validation has run.
func (s *Scope) Spec() *plan.BucketingSpec { return s.spec }

// Result returns the materialization once it has been assembled.
func (s *Scope) Result() *plan.Materialization { return s.result }
