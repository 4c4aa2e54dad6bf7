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
	"io/ioutil"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-errors.v1"
	yaml "gopkg.in/yaml.v2"
)

// ErrInvalidFixture is returned when a catalog fixture cannot be loaded.
var ErrInvalidFixture = errors.NewKind("invalid catalog fixture: %s")

// Fixture describes catalog objects to load into a Database.
type Fixture struct {
	Relations  []RelationFixture  `yaml:"relations"`
	Functions  []FunctionFixture  `yaml:"functions"`
	Collations []CollationFixture `yaml:"collations"`
}

// RelationFixture is a table, optionally turned into a hypertable.
type RelationFixture struct {
	Schema           string             `yaml:"schema"`
	Name             string             `yaml:"name"`
	Owner            string             `yaml:"owner"`
	RowSecurity      bool               `yaml:"row_security"`
	ForceRowSecurity bool               `yaml:"force_row_security"`
	Columns          []ColumnFixture    `yaml:"columns"`
	Hypertable       *HypertableFixture `yaml:"hypertable"`
}

// ColumnFixture is a column of a relation.
type ColumnFixture struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Collation string `yaml:"collation"`
	NotNull   bool   `yaml:"not_null"`
}

// HypertableFixture partitions a relation on a column. Interval is an
// integer for integer columns and an interval literal otherwise.
type HypertableFixture struct {
	Column   string      `yaml:"column"`
	Interval interface{} `yaml:"interval"`
}

// FunctionFixture is a user defined function or aggregate.
type FunctionFixture struct {
	OID        uint32            `yaml:"oid"`
	Schema     string            `yaml:"schema"`
	Name       string            `yaml:"name"`
	Args       []string          `yaml:"args"`
	Returns    string            `yaml:"returns"`
	Volatility string            `yaml:"volatility"`
	Aggregate  *AggregateFixture `yaml:"aggregate"`
}

// AggregateFixture is the metadata of a user defined aggregate.
type AggregateFixture struct {
	Kind      string `yaml:"kind"`
	TransType string `yaml:"trans_type"`
	Combine   uint32 `yaml:"combine"`
	Serial    uint32 `yaml:"serial"`
	Deserial  uint32 `yaml:"deserial"`
}

// CollationFixture is a user defined collation.
type CollationFixture struct {
	OID    uint32 `yaml:"oid"`
	Schema string `yaml:"schema"`
	Name   string `yaml:"name"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, ErrInvalidFixture.Wrap(err, "yaml")
	}
	return &f, nil
}

// LoadFixture reads a YAML fixture file into the database.
func (d *Database) LoadFixture(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}

	f, err := ParseFixture(data)
	if err != nil {
		return err
	}
	return d.Load(f)
}

// Load adds the objects of the fixture to the database: collations first,
// then functions and relations.
func (d *Database) Load(f *Fixture) error {
	for _, c := range f.Collations {
		if c.OID == 0 || c.Name == "" {
			return ErrInvalidFixture.New("collation needs an oid and a name")
		}
		schema := c.Schema
		if schema == "" {
			schema = sql.PublicSchema
		}
		d.AddCollation(&sql.Collation{OID: sql.OID(c.OID), Schema: schema, Name: c.Name})
	}

	for _, fn := range f.Functions {
		if err := d.loadFunction(fn); err != nil {
			return err
		}
	}

	for _, r := range f.Relations {
		if err := d.loadRelation(r); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) loadFunction(f FunctionFixture) error {
	if f.OID == 0 || f.Name == "" {
		return ErrInvalidFixture.New("function needs an oid and a name")
	}

	args := make([]sql.Type, len(f.Args))
	for i, a := range f.Args {
		t, err := sql.TypeByName(a)
		if err != nil {
			return ErrInvalidFixture.Wrap(err, f.Name)
		}
		args[i] = t
	}

	ret, err := sql.TypeByName(f.Returns)
	if err != nil {
		return ErrInvalidFixture.Wrap(err, f.Name)
	}

	volatility, err := parseVolatility(f.Volatility)
	if err != nil {
		return err
	}

	schema := f.Schema
	if schema == "" {
		schema = sql.PublicSchema
	}

	fn := &sql.Function{
		OID:        sql.OID(f.OID),
		Schema:     schema,
		Name:       f.Name,
		ArgTypes:   args,
		ReturnType: ret,
		Volatility: volatility,
		Kind:       sql.NormalFunction,
	}

	var agg *sql.Aggregate
	if a := f.Aggregate; a != nil {
		fn.Kind = sql.AggregateFunction
		kind, err := parseAggregateKind(a.Kind)
		if err != nil {
			return err
		}
		trans, err := sql.TypeByName(a.TransType)
		if err != nil {
			return ErrInvalidFixture.Wrap(err, f.Name)
		}
		agg = &sql.Aggregate{
			FuncOID:      fn.OID,
			Kind:         kind,
			TransType:    trans,
			CombineFunc:  sql.OID(a.Combine),
			SerialFunc:   sql.OID(a.Serial),
			DeserialFunc: sql.OID(a.Deserial),
		}
	}

	d.AddFunction(fn, agg)
	return nil
}

func (d *Database) loadRelation(r RelationFixture) error {
	if r.Name == "" || len(r.Columns) == 0 {
		return ErrInvalidFixture.New("relation needs a name and columns")
	}

	schema := r.Schema
	if schema == "" {
		schema = sql.PublicSchema
	}

	cols := make([]*sql.Column, len(r.Columns))
	for i, c := range r.Columns {
		t, err := sql.TypeByName(c.Type)
		if err != nil {
			return ErrInvalidFixture.Wrap(err, r.Name+"."+c.Name)
		}

		coll := sql.InvalidOID
		if t.IsCollatable() {
			coll = sql.DefaultCollationOID
			if c.Collation != "" {
				oid, ok := d.collationByName(c.Collation)
				if !ok {
					return ErrInvalidFixture.New("unknown collation " + c.Collation)
				}
				coll = oid
			}
		}

		cols[i] = &sql.Column{
			Name:      c.Name,
			Type:      t,
			Typmod:    -1,
			Collation: coll,
			Nullable:  !c.NotNull,
		}
	}

	err := d.AddRelation(&sql.Relation{
		Schema:           schema,
		Name:             r.Name,
		Owner:            r.Owner,
		RowSecurity:      r.RowSecurity,
		ForceRowSecurity: r.ForceRowSecurity,
		Columns:          cols,
	})
	if err != nil {
		return err
	}

	if r.Hypertable == nil {
		return nil
	}

	rel, _ := d.RelationByName(schema, r.Name)
	col, ok := rel.ColumnByName(r.Hypertable.Column)
	if !ok {
		return ErrColumnNotFound.New(r.Hypertable.Column, rel.QualifiedName())
	}

	interval, err := chunkInterval(col.Type, r.Hypertable.Interval)
	if err != nil {
		return err
	}

	_, err = d.AddHypertable(schema, r.Name, col.Name, interval)
	return err
}

// chunkInterval converts a fixture interval to internal units.
func chunkInterval(t sql.Type, v interface{}) (int64, error) {
	if t.IsInteger() {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return 0, ErrInvalidFixture.Wrap(err, "hypertable interval")
		}
		return n, nil
	}

	var d time.Duration
	switch v := v.(type) {
	case string:
		var err error
		d, err = sql.ParseInterval(v)
		if err != nil {
			return 0, ErrInvalidFixture.Wrap(err, "hypertable interval")
		}
	default:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return 0, ErrInvalidFixture.Wrap(err, "hypertable interval")
		}
		return n, nil
	}
	return int64(d / time.Microsecond), nil
}

func (d *Database) collationByName(name string) (sql.OID, bool) {
	snap := d.read()
	for oid, c := range snap.collations {
		if c.Name == name || c.Schema+"."+c.Name == name {
			return oid, true
		}
	}
	return sql.InvalidOID, false
}

func parseVolatility(s string) (sql.Volatility, error) {
	switch strings.ToLower(s) {
	case "", "volatile":
		return sql.Volatile, nil
	case "stable":
		return sql.Stable, nil
	case "immutable":
		return sql.Immutable, nil
	default:
		return 0, ErrInvalidFixture.New("unknown volatility " + s)
	}
}

func parseAggregateKind(s string) (sql.AggregateKind, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return sql.NormalAggregate, nil
	case "ordered", "ordered-set":
		return sql.OrderedSetAggregate, nil
	case "hypothetical":
		return sql.HypotheticalAggregate, nil
	default:
		return 0, ErrInvalidFixture.New("unknown aggregate kind " + s)
	}
}
