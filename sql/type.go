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
	"strconv"
	"strings"
)

// OID identifies a catalog object: a type, relation, function, operator or
// collation.
type OID uint32

// InvalidOID is the zero OID, used for "no object".
const InvalidOID OID = 0

// IsValid reports whether the OID refers to an object.
func (o OID) IsValid() bool { return o != InvalidOID }

func (o OID) String() string { return strconv.FormatUint(uint64(o), 10) }

// Type is a data type known to the catalog. Name is the canonical
// formatted name used in function signatures.
type Type struct {
	OID  OID
	Name string
}

func (t Type) String() string { return t.Name }

// IsNumeric reports whether values of the type are numbers.
func (t Type) IsNumeric() bool {
	_, ok := numericRank[t.OID]
	return ok
}

// IsInteger reports whether values of the type are integers.
func (t Type) IsInteger() bool {
	return t == Int16 || t == Int32 || t == Int64
}

var (
	Boolean     = Type{16, "boolean"}
	Bytea       = Type{17, "bytea"}
	Name        = Type{19, "name"}
	Int64       = Type{20, "bigint"}
	Int16       = Type{21, "smallint"}
	Int32       = Type{23, "integer"}
	Text        = Type{25, "text"}
	Float32     = Type{700, "real"}
	Float64     = Type{701, "double precision"}
	Unknown     = Type{705, "unknown"}
	Date        = Type{1082, "date"}
	Timestamp   = Type{1114, "timestamp without time zone"}
	TimestampTZ = Type{1184, "timestamp with time zone"}
	Interval    = Type{1186, "interval"}
	Numeric     = Type{1700, "numeric"}
	Record      = Type{2249, "record"}
	Internal    = Type{2281, "internal"}
	AnyElement  = Type{2283, "anyelement"}
	Any         = Type{2276, "\"any\""}
)

var numericRank = map[OID]int{
	Int16.OID:   1,
	Int32.OID:   2,
	Int64.OID:   3,
	Numeric.OID: 4,
	Float32.OID: 5,
	Float64.OID: 6,
}

var typesByName = map[string]Type{
	"bool":                        Boolean,
	"boolean":                     Boolean,
	"bytea":                       Bytea,
	"name":                        Name,
	"int8":                        Int64,
	"bigint":                      Int64,
	"int2":                        Int16,
	"smallint":                    Int16,
	"int":                         Int32,
	"int4":                        Int32,
	"integer":                     Int32,
	"text":                        Text,
	"varchar":                     Text,
	"float4":                      Float32,
	"real":                        Float32,
	"float8":                      Float64,
	"double precision":            Float64,
	"date":                        Date,
	"timestamp":                   Timestamp,
	"timestamp without time zone": Timestamp,
	"timestamptz":                 TimestampTZ,
	"timestamp with time zone":    TimestampTZ,
	"interval":                    Interval,
	"numeric":                     Numeric,
	"decimal":                     Numeric,
	"record":                      Record,
	"internal":                    Internal,
	"anyelement":                  AnyElement,
	"any":                         Any,
}

// TypeByName returns the type with the given name or alias.
func TypeByName(name string) (Type, error) {
	t, ok := typesByName[strings.Trim(strings.ToLower(strings.TrimSpace(name)), `"`)]
	if !ok {
		return Type{}, ErrTypeNotFound.New(name)
	}
	return t, nil
}

// CommonNumericType returns the numeric type both a and b can be promoted
// to without loss, and false if either is not numeric.
func CommonNumericType(a, b Type) (Type, bool) {
	ra, oka := numericRank[a.OID]
	rb, okb := numericRank[b.OID]
	if !oka || !okb {
		return Type{}, false
	}
	if ra >= rb {
		return a, true
	}
	return b, true
}

// IsPolymorphic reports whether t accepts any argument type.
func (t Type) IsPolymorphic() bool {
	return t == AnyElement || t == Any || t == Record
}
