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

package test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-cagg.v0/memory"
)

// Catalog is a fixture with a time partitioned hypertable, an integer
// partitioned hypertable and a plain table.
const Catalog = `
relations:
  - name: conditions
    columns:
      - {name: timec, type: timestamptz, not_null: true}
      - {name: device, type: integer}
      - {name: location, type: text}
      - {name: temperature, type: double precision}
      - {name: humidity, type: double precision}
    hypertable:
      column: timec
      interval: 7 days
  - name: readings
    columns:
      - {name: ts, type: bigint, not_null: true}
      - {name: value, type: double precision}
    hypertable:
      column: ts
      interval: 1000
  - name: devices
    columns:
      - {name: id, type: integer}
      - {name: location, type: text}
`

// NewDatabase returns a database loaded with the Catalog fixture.
func NewDatabase(t testing.TB, opts ...memory.Option) *memory.Database {
	t.Helper()
	require := require.New(t)

	f, err := memory.ParseFixture([]byte(Catalog))
	require.NoError(err)

	db := memory.NewDatabase(opts...)
	require.NoError(db.Load(f))
	return db
}
