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
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

// snapshot is the whole content of a database at one point in time.
type snapshot struct {
	relations   map[sql.OID]*sql.Relation
	names       map[string]sql.OID
	hypertables map[sql.OID]*sql.Hypertable
	functions   map[sql.OID]*sql.Function
	aggregates  map[sql.OID]*sql.Aggregate
	operators   map[sql.OID]*sql.Operator
	collations  map[sql.OID]*sql.Collation

	views    map[sql.OID]*plan.Query
	triggers []*plan.Trigger
	jobs     map[int32]*plan.RefreshJob
	caggs    map[string]*plan.ContinuousAggRecord

	nextOID          sql.OID
	nextHypertableID int32
	nextJobID        int32
}

func newSnapshot() *snapshot {
	s := &snapshot{
		relations:        make(map[sql.OID]*sql.Relation),
		names:            make(map[string]sql.OID),
		hypertables:      make(map[sql.OID]*sql.Hypertable),
		functions:        make(map[sql.OID]*sql.Function),
		aggregates:       make(map[sql.OID]*sql.Aggregate),
		operators:        make(map[sql.OID]*sql.Operator),
		collations:       make(map[sql.OID]*sql.Collation),
		views:            make(map[sql.OID]*plan.Query),
		jobs:             make(map[int32]*plan.RefreshJob),
		caggs:            make(map[string]*plan.ContinuousAggRecord),
		nextOID:          FirstNormalOID,
		nextHypertableID: 1,
		nextJobID:        1000,
	}
	s.loadBuiltins()
	return s
}

// clone copies the maps of the snapshot. Catalog objects are never
// modified once stored, so they are shared.
func (s *snapshot) clone() *snapshot {
	ns := *s
	ns.relations = make(map[sql.OID]*sql.Relation, len(s.relations))
	for k, v := range s.relations {
		ns.relations[k] = v
	}
	ns.names = make(map[string]sql.OID, len(s.names))
	for k, v := range s.names {
		ns.names[k] = v
	}
	ns.hypertables = make(map[sql.OID]*sql.Hypertable, len(s.hypertables))
	for k, v := range s.hypertables {
		ns.hypertables[k] = v
	}
	ns.functions = make(map[sql.OID]*sql.Function, len(s.functions))
	for k, v := range s.functions {
		ns.functions[k] = v
	}
	ns.aggregates = make(map[sql.OID]*sql.Aggregate, len(s.aggregates))
	for k, v := range s.aggregates {
		ns.aggregates[k] = v
	}
	ns.operators = make(map[sql.OID]*sql.Operator, len(s.operators))
	for k, v := range s.operators {
		ns.operators[k] = v
	}
	ns.collations = make(map[sql.OID]*sql.Collation, len(s.collations))
	for k, v := range s.collations {
		ns.collations[k] = v
	}
	ns.views = make(map[sql.OID]*plan.Query, len(s.views))
	for k, v := range s.views {
		ns.views[k] = v
	}
	ns.triggers = append([]*plan.Trigger(nil), s.triggers...)
	ns.jobs = make(map[int32]*plan.RefreshJob, len(s.jobs))
	for k, v := range s.jobs {
		ns.jobs[k] = v
	}
	ns.caggs = make(map[string]*plan.ContinuousAggRecord, len(s.caggs))
	for k, v := range s.caggs {
		ns.caggs[k] = v
	}
	return &ns
}

func qualify(schema, name string) string {
	if schema == "" {
		schema = sql.PublicSchema
	}
	return schema + "." + name
}

func (s *snapshot) newOID() sql.OID {
	oid := s.nextOID
	s.nextOID++
	return oid
}

func (s *snapshot) addFunction(fn *sql.Function) {
	s.functions[fn.OID] = fn
}

func (s *snapshot) addRelation(rel *sql.Relation) error {
	key := qualify(rel.Schema, rel.Name)
	if _, ok := s.names[key]; ok {
		return ErrRelationExists.New(key)
	}
	if rel.OID == sql.InvalidOID {
		rel.OID = s.newOID()
	} else if rel.OID >= s.nextOID {
		s.nextOID = rel.OID + 1
	}
	for i, c := range rel.Columns {
		c.Attno = i + 1
	}
	s.relations[rel.OID] = rel
	s.names[key] = rel.OID
	return nil
}

func (s *snapshot) addHypertable(relid sql.OID, column string, interval int64) (*sql.Hypertable, error) {
	rel, ok := s.relations[relid]
	if !ok {
		return nil, sql.ErrRelationNotFound.New(relid.String())
	}
	if _, ok := s.hypertables[relid]; ok {
		return nil, ErrAlreadyHypertable.New(rel.QualifiedName())
	}

	col, ok := rel.ColumnByName(column)
	if !ok {
		return nil, ErrColumnNotFound.New(column, rel.QualifiedName())
	}
	if interval <= 0 {
		return nil, ErrInvalidChunkInterval.New(interval)
	}

	ht := &sql.Hypertable{
		ID:                  s.nextHypertableID,
		RelID:               relid,
		PartitionColumn:     col.Attno,
		PartitionColumnName: col.Name,
		PartitionType:       col.Type,
		IntervalLength:      interval,
	}
	s.nextHypertableID++
	s.hypertables[relid] = ht
	return ht, nil
}

func (s *snapshot) Relation(oid sql.OID) (*sql.Relation, bool) {
	rel, ok := s.relations[oid]
	return rel, ok
}

func (s *snapshot) RelationByName(schema, name string) (*sql.Relation, bool) {
	oid, ok := s.names[qualify(schema, name)]
	if !ok {
		return nil, false
	}
	return s.Relation(oid)
}

func (s *snapshot) Hypertable(relid sql.OID) (*sql.Hypertable, bool) {
	ht, ok := s.hypertables[relid]
	return ht, ok
}

func (s *snapshot) Function(oid sql.OID) (*sql.Function, bool) {
	fn, ok := s.functions[oid]
	return fn, ok
}

func (s *snapshot) FunctionsByName(schema, name string) []*sql.Function {
	var fns []*sql.Function
	for _, fn := range s.functions {
		if fn.Name != name {
			continue
		}
		if schema == "" && (fn.Schema == sql.CatalogSchema || fn.Schema == sql.PublicSchema) || fn.Schema == schema {
			fns = append(fns, fn)
		}
	}
	sortFunctions(fns)
	return fns
}

func (s *snapshot) Aggregate(oid sql.OID) (*sql.Aggregate, bool) {
	agg, ok := s.aggregates[oid]
	return agg, ok
}

func (s *snapshot) Operator(oid sql.OID) (*sql.Operator, bool) {
	op, ok := s.operators[oid]
	return op, ok
}

func (s *snapshot) OperatorsByName(name string) []*sql.Operator {
	var ops []*sql.Operator
	for _, op := range s.operators {
		if op.Name == name {
			ops = append(ops, op)
		}
	}
	sortOperators(ops)
	return ops
}

func (s *snapshot) Collation(oid sql.OID) (*sql.Collation, bool) {
	c, ok := s.collations[oid]
	return c, ok
}
