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

package cagg_test

import (
	"context"
	"fmt"

	"gopkg.in/src-d/go-cagg.v0"
	"gopkg.in/src-d/go-cagg.v0/memory"
	"gopkg.in/src-d/go-cagg.v0/sql"
)

const catalog = `
relations:
  - name: conditions
    columns:
      - {name: timec, type: timestamptz, not_null: true}
      - {name: device, type: integer}
      - {name: temperature, type: double precision}
    hypertable:
      column: timec
      interval: 7 days
`

func Example() {
	e := cagg.NewDefault()

	f, err := memory.ParseFixture([]byte(catalog))
	checkIfError(err)
	checkIfError(e.Catalog.Load(f))

	query := `CREATE VIEW hourly WITH (timescaledb.continuous) AS
	SELECT time_bucket('1 hour', timec), device, avg(temperature)
	FROM conditions
	GROUP BY 1, device`

	ctx, err := cagg.NewContext(context.Background(), query)
	checkIfError(err)

	rec, err := e.Create(ctx, query)
	checkIfError(err)

	fmt.Println(rec.PartialViewSchema, rec.PartialViewName)

	tab, ok := e.Catalog.RelationByName(sql.InternalSchema, "ts_internal_hourlytab")
	if !ok {
		panic("materialization table not found")
	}
	for _, col := range tab.Columns {
		fmt.Println(col.Name, col.Type)
	}

	// Output: _timescaledb_internal ts_internal_hourlyview
	// time_partition_col timestamp with time zone
	// device integer
	// tscol3 bytea
	// chunk_id integer
}

func checkIfError(err error) {
	if err != nil {
		panic(err)
	}
}
