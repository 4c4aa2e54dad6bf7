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

package sql

import (
	"fmt"
	"strings"
)

// Volatility classifies a function by how its result may change between
// calls with the same arguments.
type Volatility byte

const (
	// Immutable functions always return the same result for the same
	// arguments.
	Immutable Volatility = 'i'
	// Stable functions return the same result within a single statement.
	Stable Volatility = 's'
	// Volatile functions may return a different result on every call.
	Volatile Volatility = 'v'
)

func (v Volatility) String() string {
	switch v {
	case Immutable:
		return "immutable"
	case Stable:
		return "stable"
	default:
		return "volatile"
	}
}

// FunctionKind tells plain functions apart from aggregates and window
// functions.
type FunctionKind byte

const (
	NormalFunction    FunctionKind = 'f'
	AggregateFunction FunctionKind = 'a'
	WindowFunction    FunctionKind = 'w'
)

// Well-known schemas.
const (
	CatalogSchema  = "pg_catalog"
	PublicSchema   = "public"
	InternalSchema = "_timescaledb_internal"
)

// Function describes a callable catalog object.
type Function struct {
	OID        OID
	Schema     string
	Name       string
	ArgTypes   []Type
	ReturnType Type
	Volatility Volatility
	Kind       FunctionKind
	// Strict functions return NULL on any NULL argument.
	Strict bool
}

// Signature renders the function the way a regprocedure is printed:
// name(argtype, ...), qualified with its schema unless it lives in one of
// the schemas always on the search path.
func (f *Function) Signature() string {
	args := make([]string, len(f.ArgTypes))
	for i, t := range f.ArgTypes {
		args[i] = t.Name
	}

	name := QuoteIdentifier(f.Name)
	if f.Schema != "" && f.Schema != CatalogSchema && f.Schema != PublicSchema {
		name = QuoteIdentifier(f.Schema) + "." + name
	}

	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ","))
}

// QualifiedName returns schema.name.
func (f *Function) QualifiedName() string {
	if f.Schema == "" {
		return f.Name
	}
	return f.Schema + "." + f.Name
}

// AggregateKind is the kind of an aggregate function.
type AggregateKind byte

const (
	NormalAggregate       AggregateKind = 'n'
	OrderedSetAggregate   AggregateKind = 'o'
	HypotheticalAggregate AggregateKind = 'h'
)

// Aggregate holds the aggregate-specific metadata of a function.
type Aggregate struct {
	FuncOID      OID
	Kind         AggregateKind
	TransType    Type
	CombineFunc  OID
	SerialFunc   OID
	DeserialFunc OID
}

// Operator is a binary operator implemented by a function.
type Operator struct {
	OID        OID
	Name       string
	Left       Type
	Right      Type
	ResultType Type
	FuncOID    OID
}

// RelationKind is the kind of a relation.
type RelationKind byte

const (
	TableRelation RelationKind = 'r'
	ViewRelation  RelationKind = 'v'
)

// Column is a column of a relation. Attno is 1-based.
type Column struct {
	Name      string
	Type      Type
	Typmod    int32
	Collation OID
	Attno     int
	Nullable  bool
}

// Relation is a table or view.
type Relation struct {
	OID              OID
	Schema           string
	Name             string
	Kind             RelationKind
	Owner            string
	RowSecurity      bool
	ForceRowSecurity bool
	Columns          []*Column
}

// QualifiedName returns schema.name.
func (r *Relation) QualifiedName() string {
	return QuoteIdentifier(r.Schema) + "." + QuoteIdentifier(r.Name)
}

// Column returns the column with the given attribute number.
func (r *Relation) Column(attno int) (*Column, bool) {
	if attno < 1 || attno > len(r.Columns) {
		return nil, false
	}
	return r.Columns[attno-1], true
}

// ColumnByName returns the column with the given name.
func (r *Relation) ColumnByName(name string) (*Column, bool) {
	for _, c := range r.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// Hypertable is a relation partitioned on a time-like column.
type Hypertable struct {
	ID                  int32
	RelID               OID
	PartitionColumn     int
	PartitionColumnName string
	PartitionType       Type
	// IntervalLength is the partitioning interval, in microseconds for
	// time types and in the column's units for integer types.
	IntervalLength int64
}

// RelationLookup resolves relations.
type RelationLookup interface {
	Relation(oid OID) (*Relation, bool)
	RelationByName(schema, name string) (*Relation, bool)
}

// HypertableLookup resolves hypertables by their relation.
type HypertableLookup interface {
	Hypertable(relid OID) (*Hypertable, bool)
}

// FunctionLookup resolves functions. An empty schema searches pg_catalog
// and public.
type FunctionLookup interface {
	Function(oid OID) (*Function, bool)
	FunctionsByName(schema, name string) []*Function
}

// AggregateLookup resolves aggregate metadata by function OID.
type AggregateLookup interface {
	Aggregate(oid OID) (*Aggregate, bool)
}

// OperatorLookup resolves operators.
type OperatorLookup interface {
	Operator(oid OID) (*Operator, bool)
	OperatorsByName(name string) []*Operator
}

// CollationLookup resolves collations.
type CollationLookup interface {
	Collation(oid OID) (*Collation, bool)
}

// Catalog is everything the rewrite needs to know about the database.
type Catalog interface {
	RelationLookup
	HypertableLookup
	FunctionLookup
	AggregateLookup
	OperatorLookup
	CollationLookup
}

// QuoteIdentifier quotes an identifier only when it needs quoting.
func QuoteIdentifier(s string) string {
	if s == "" {
		return s
	}
	safe := true
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case (r >= '0' && r <= '9') || r == '$':
			if i == 0 {
				safe = false
			}
		default:
			safe = false
		}
	}
	if safe {
		return s
	}
	return `"` + strings.Replace(s, `"`, `""`, -1) + `"`
}

// SortGroupOperators returns the equality and ordering operators used to
// group or sort values of type t. Types without an equality operator can
// not be grouped.
func SortGroupOperators(ops OperatorLookup, t Type) (eq, lt OID, hashable bool) {
	for _, op := range ops.OperatorsByName("=") {
		if op.Left == t && op.Right == t {
			eq = op.OID
			break
		}
	}
	for _, op := range ops.OperatorsByName("<") {
		if op.Left == t && op.Right == t {
			lt = op.OID
			break
		}
	}
	return eq, lt, eq.IsValid()
}
