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
	"gopkg.in/src-d/go-cagg.v0/sql"
)

// BucketingSpec describes how the source hypertable is partitioned and how
// the continuous aggregate buckets it.
type BucketingSpec struct {
	HypertableID        int32
	RelID               sql.OID
	PartitionColumn     int
	PartitionColumnName string
	PartitionType       sql.Type
	// PartitionInterval is the partitioning interval of the source
	// hypertable, in internal units.
	PartitionInterval int64
	// BucketWidth is the time_bucket width in internal units: microseconds
	// for intervals, the integer value otherwise.
	BucketWidth int64
	// SortGroupRef identifies the GROUP BY entry holding the bucket call.
	SortGroupRef int
}

// ColumnRole is what a materialization column stores.
type ColumnRole int

const (
	// RolePlain is a grouping or non-aggregated output column.
	RolePlain ColumnRole = iota
	// RolePartitionBucket is the time_bucket column the materialization
	// table is partitioned on.
	RolePartitionBucket
	// RolePartialState holds the serialized partial state of an aggregate.
	RolePartialState
	// RoleChunkLocator holds the id of the source chunk.
	RoleChunkLocator
)

func (r ColumnRole) String() string {
	switch r {
	case RolePartitionBucket:
		return "partition bucket"
	case RolePartialState:
		return "partial state"
	case RoleChunkLocator:
		return "chunk locator"
	default:
		return "plain"
	}
}

// MaterializationColumn is a column of the materialization table.
type MaterializationColumn struct {
	Name      string
	Type      sql.Type
	Typmod    int32
	Collation sql.OID
	Role      ColumnRole
}

// Materialization is the result of rewriting a continuous aggregate
// definition.
type Materialization struct {
	Spec    BucketingSpec
	Columns []MaterializationColumn
	// PartitionColumn is the index in Columns of the bucket column.
	PartitionColumn int
	PopulateQuery   *Query
	ViewQuery       *Query
	SourceQuery     *Query

	UserViewSchema    string
	UserViewName      string
	MatTableSchema    string
	MatTableName      string
	PartialViewSchema string
	PartialViewName   string

	// Fingerprint is a structural hash of the source query.
	Fingerprint uint64
}

// TableColumns returns the materialization table definition.
func (m *Materialization) TableColumns() []*sql.Column {
	cols := make([]*sql.Column, len(m.Columns))
	for i, c := range m.Columns {
		cols[i] = &sql.Column{
			Name:      c.Name,
			Type:      c.Type,
			Typmod:    c.Typmod,
			Collation: c.Collation,
			Attno:     i + 1,
			Nullable:  true,
		}
	}
	return cols
}
