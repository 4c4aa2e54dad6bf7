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

// Collation is a named collation in a schema.
type Collation struct {
	OID    OID
	Schema string
	Name   string
}

const (
	// DefaultCollationOID is the database default collation.
	DefaultCollationOID OID = 100
	// CCollationOID is the "C" collation.
	CCollationOID OID = 950
	// POSIXCollationOID is the "POSIX" collation.
	POSIXCollationOID OID = 951
)

// IsCollatable reports whether values of the type carry a collation.
func (t Type) IsCollatable() bool {
	return t == Text || t == Name
}
