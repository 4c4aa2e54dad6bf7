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
)

var (
	float8Array = sql.Type{OID: 1022, Name: "double precision[]"}
	int8Array   = sql.Type{OID: 1016, Name: "bigint[]"}
)

// Trigger is the type of trigger functions.
var Trigger = sql.Type{OID: 2279, Name: "trigger"}

type builtinAggregate struct {
	oid        sql.OID
	name       string
	args       []sql.Type
	ret        sql.Type
	kind       sql.AggregateKind
	trans      sql.Type
	combine    sql.OID
	serial     sql.OID
	deserial   sql.OID
	volatility sql.Volatility
}

type builtinFunction struct {
	oid        sql.OID
	schema     string
	name       string
	args       []sql.Type
	ret        sql.Type
	volatility sql.Volatility
}

type builtinOperator struct {
	oid         sql.OID
	name        string
	left, right sql.Type
	ret         sql.Type
	funcOID     sql.OID
	funcName    string
}

// OIDs of the extension functions. Objects created afterwards are numbered
// from FirstNormalOID.
const (
	TimeBucketIntervalTimestampTZ sql.OID = 16400 + iota
	TimeBucketIntervalTimestamp
	TimeBucketIntervalDate
	TimeBucketSmallint
	TimeBucketInteger
	TimeBucketBigint
	TimeBucketIntervalTimestampTZOrigin
	PartializeAggOID
	FinalizeAggOID
	ChunkForTupleOID
	InvalidationTriggerOID
	finalizeAggSfunc
	finalizeAggFfunc
	finalizeAggCombine
	finalizeAggSerial
	finalizeAggDeserial

	// FirstNormalOID is the first OID assigned to user objects.
	FirstNormalOID sql.OID = 20000
)

var aggregates = []builtinAggregate{
	{2100, "avg", []sql.Type{sql.Int64}, sql.Numeric, sql.NormalAggregate, sql.Internal, 2785, 2786, 2787, sql.Immutable},
	{2101, "avg", []sql.Type{sql.Int32}, sql.Numeric, sql.NormalAggregate, int8Array, 3324, 0, 0, sql.Immutable},
	{2102, "avg", []sql.Type{sql.Int16}, sql.Numeric, sql.NormalAggregate, int8Array, 3324, 0, 0, sql.Immutable},
	{2103, "avg", []sql.Type{sql.Numeric}, sql.Numeric, sql.NormalAggregate, sql.Internal, 3337, 2740, 2741, sql.Immutable},
	{2104, "avg", []sql.Type{sql.Float32}, sql.Float64, sql.NormalAggregate, float8Array, 276, 0, 0, sql.Immutable},
	{2105, "avg", []sql.Type{sql.Float64}, sql.Float64, sql.NormalAggregate, float8Array, 276, 0, 0, sql.Immutable},
	{2107, "sum", []sql.Type{sql.Int64}, sql.Numeric, sql.NormalAggregate, sql.Internal, 3341, 2786, 2787, sql.Immutable},
	{2108, "sum", []sql.Type{sql.Int32}, sql.Int64, sql.NormalAggregate, sql.Int64, 463, 0, 0, sql.Immutable},
	{2109, "sum", []sql.Type{sql.Int16}, sql.Int64, sql.NormalAggregate, sql.Int64, 463, 0, 0, sql.Immutable},
	{2110, "sum", []sql.Type{sql.Float32}, sql.Float32, sql.NormalAggregate, sql.Float32, 204, 0, 0, sql.Immutable},
	{2111, "sum", []sql.Type{sql.Float64}, sql.Float64, sql.NormalAggregate, sql.Float64, 218, 0, 0, sql.Immutable},
	{2114, "sum", []sql.Type{sql.Numeric}, sql.Numeric, sql.NormalAggregate, sql.Internal, 3341, 2740, 2741, sql.Immutable},
	{2115, "max", []sql.Type{sql.Int64}, sql.Int64, sql.NormalAggregate, sql.Int64, 1236, 0, 0, sql.Immutable},
	{2116, "max", []sql.Type{sql.Int32}, sql.Int32, sql.NormalAggregate, sql.Int32, 768, 0, 0, sql.Immutable},
	{2119, "max", []sql.Type{sql.Float32}, sql.Float32, sql.NormalAggregate, sql.Float32, 209, 0, 0, sql.Immutable},
	{2120, "max", []sql.Type{sql.Float64}, sql.Float64, sql.NormalAggregate, sql.Float64, 223, 0, 0, sql.Immutable},
	{2126, "max", []sql.Type{sql.Timestamp}, sql.Timestamp, sql.NormalAggregate, sql.Timestamp, 2036, 0, 0, sql.Immutable},
	{2127, "max", []sql.Type{sql.TimestampTZ}, sql.TimestampTZ, sql.NormalAggregate, sql.TimestampTZ, 1196, 0, 0, sql.Immutable},
	{2129, "max", []sql.Type{sql.Text}, sql.Text, sql.NormalAggregate, sql.Text, 458, 0, 0, sql.Immutable},
	{2130, "max", []sql.Type{sql.Numeric}, sql.Numeric, sql.NormalAggregate, sql.Numeric, 1767, 0, 0, sql.Immutable},
	{2131, "min", []sql.Type{sql.Int64}, sql.Int64, sql.NormalAggregate, sql.Int64, 1237, 0, 0, sql.Immutable},
	{2132, "min", []sql.Type{sql.Int32}, sql.Int32, sql.NormalAggregate, sql.Int32, 769, 0, 0, sql.Immutable},
	{2135, "min", []sql.Type{sql.Float32}, sql.Float32, sql.NormalAggregate, sql.Float32, 211, 0, 0, sql.Immutable},
	{2136, "min", []sql.Type{sql.Float64}, sql.Float64, sql.NormalAggregate, sql.Float64, 224, 0, 0, sql.Immutable},
	{2142, "min", []sql.Type{sql.Timestamp}, sql.Timestamp, sql.NormalAggregate, sql.Timestamp, 2035, 0, 0, sql.Immutable},
	{2143, "min", []sql.Type{sql.TimestampTZ}, sql.TimestampTZ, sql.NormalAggregate, sql.TimestampTZ, 1195, 0, 0, sql.Immutable},
	{2145, "min", []sql.Type{sql.Text}, sql.Text, sql.NormalAggregate, sql.Text, 459, 0, 0, sql.Immutable},
	{2146, "min", []sql.Type{sql.Numeric}, sql.Numeric, sql.NormalAggregate, sql.Numeric, 1766, 0, 0, sql.Immutable},
	{2147, "count", []sql.Type{sql.Any}, sql.Int64, sql.NormalAggregate, sql.Int64, 463, 0, 0, sql.Immutable},
	{2803, "count", nil, sql.Int64, sql.NormalAggregate, sql.Int64, 463, 0, 0, sql.Immutable},
	{2159, "stddev", []sql.Type{sql.Float64}, sql.Float64, sql.NormalAggregate, float8Array, 276, 0, 0, sql.Immutable},
	{2335, "array_agg", []sql.Type{sql.AnyElement}, sql.AnyElement, sql.NormalAggregate, sql.Internal, 0, 0, 0, sql.Immutable},
	{3538, "string_agg", []sql.Type{sql.Text, sql.Text}, sql.Text, sql.NormalAggregate, sql.Internal, 0, 0, 0, sql.Immutable},
	{3974, "percentile_cont", []sql.Type{sql.Float64, sql.Float64}, sql.Float64, sql.OrderedSetAggregate, sql.Internal, 0, 0, 0, sql.Immutable},
	{3986, "rank", []sql.Type{sql.Any}, sql.Int64, sql.HypotheticalAggregate, sql.Internal, 0, 0, 0, sql.Immutable},
}

var functions = []builtinFunction{
	{TimeBucketIntervalTimestampTZ, sql.PublicSchema, "time_bucket", []sql.Type{sql.Interval, sql.TimestampTZ}, sql.TimestampTZ, sql.Immutable},
	{TimeBucketIntervalTimestamp, sql.PublicSchema, "time_bucket", []sql.Type{sql.Interval, sql.Timestamp}, sql.Timestamp, sql.Immutable},
	{TimeBucketIntervalDate, sql.PublicSchema, "time_bucket", []sql.Type{sql.Interval, sql.Date}, sql.Date, sql.Immutable},
	{TimeBucketSmallint, sql.PublicSchema, "time_bucket", []sql.Type{sql.Int16, sql.Int16}, sql.Int16, sql.Immutable},
	{TimeBucketInteger, sql.PublicSchema, "time_bucket", []sql.Type{sql.Int32, sql.Int32}, sql.Int32, sql.Immutable},
	{TimeBucketBigint, sql.PublicSchema, "time_bucket", []sql.Type{sql.Int64, sql.Int64}, sql.Int64, sql.Immutable},
	{TimeBucketIntervalTimestampTZOrigin, sql.PublicSchema, "time_bucket", []sql.Type{sql.Interval, sql.TimestampTZ, sql.TimestampTZ}, sql.TimestampTZ, sql.Immutable},
	{PartializeAggOID, sql.InternalSchema, "partialize_agg", []sql.Type{sql.AnyElement}, sql.Bytea, sql.Immutable},
	{ChunkForTupleOID, sql.InternalSchema, "chunk_for_tuple", []sql.Type{sql.Int32, sql.AnyElement}, sql.Int32, sql.Stable},
	{InvalidationTriggerOID, sql.InternalSchema, "continuous_agg_invalidation_trigger", nil, Trigger, sql.Volatile},
	{870, sql.CatalogSchema, "lower", []sql.Type{sql.Text}, sql.Text, sql.Immutable},
	{871, sql.CatalogSchema, "upper", []sql.Type{sql.Text}, sql.Text, sql.Immutable},
	{221, sql.CatalogSchema, "abs", []sql.Type{sql.Float64}, sql.Float64, sql.Immutable},
	{1397, sql.CatalogSchema, "abs", []sql.Type{sql.Int32}, sql.Int32, sql.Immutable},
	{228, sql.CatalogSchema, "round", []sql.Type{sql.Float64}, sql.Float64, sql.Immutable},
	{1299, sql.CatalogSchema, "now", nil, sql.TimestampTZ, sql.Stable},
	{2649, sql.CatalogSchema, "clock_timestamp", nil, sql.TimestampTZ, sql.Volatile},
	{1598, sql.CatalogSchema, "random", nil, sql.Float64, sql.Volatile},
	{1217, sql.CatalogSchema, "date_trunc", []sql.Type{sql.Text, sql.TimestampTZ}, sql.TimestampTZ, sql.Stable},
	{2020, sql.CatalogSchema, "date_trunc", []sql.Type{sql.Text, sql.Timestamp}, sql.Timestamp, sql.Immutable},
	{1159, sql.CatalogSchema, "timezone", []sql.Type{sql.Text, sql.TimestampTZ}, sql.Timestamp, sql.Immutable},
	{2069, sql.CatalogSchema, "timezone", []sql.Type{sql.Text, sql.Timestamp}, sql.TimestampTZ, sql.Immutable},
	{1171, sql.CatalogSchema, "date_part", []sql.Type{sql.Text, sql.TimestampTZ}, sql.Float64, sql.Stable},
	{2021, sql.CatalogSchema, "date_part", []sql.Type{sql.Text, sql.Timestamp}, sql.Float64, sql.Immutable},
	{2028, sql.CatalogSchema, "timestamptz", []sql.Type{sql.Timestamp}, sql.TimestampTZ, sql.Stable},
	{2027, sql.CatalogSchema, "timestamp", []sql.Type{sql.TimestampTZ}, sql.Timestamp, sql.Stable},
	{316, sql.CatalogSchema, "float8", []sql.Type{sql.Int32}, sql.Float64, sql.Immutable},
	{482, sql.CatalogSchema, "float8", []sql.Type{sql.Int64}, sql.Float64, sql.Immutable},
	{1746, sql.CatalogSchema, "float8", []sql.Type{sql.Numeric}, sql.Float64, sql.Immutable},
	{1740, sql.CatalogSchema, "numeric", []sql.Type{sql.Int32}, sql.Numeric, sql.Immutable},
	{1781, sql.CatalogSchema, "numeric", []sql.Type{sql.Int64}, sql.Numeric, sql.Immutable},
	{1743, sql.CatalogSchema, "numeric", []sql.Type{sql.Float64}, sql.Numeric, sql.Immutable},
	{481, sql.CatalogSchema, "int8", []sql.Type{sql.Int32}, sql.Int64, sql.Immutable},
}

var operators = []builtinOperator{
	{96, "=", sql.Int32, sql.Int32, sql.Boolean, 65, "int4eq"},
	{97, "<", sql.Int32, sql.Int32, sql.Boolean, 66, "int4lt"},
	{521, ">", sql.Int32, sql.Int32, sql.Boolean, 147, "int4gt"},
	{523, "<=", sql.Int32, sql.Int32, sql.Boolean, 149, "int4le"},
	{525, ">=", sql.Int32, sql.Int32, sql.Boolean, 150, "int4ge"},
	{518, "<>", sql.Int32, sql.Int32, sql.Boolean, 144, "int4ne"},
	{551, "+", sql.Int32, sql.Int32, sql.Int32, 177, "int4pl"},
	{555, "-", sql.Int32, sql.Int32, sql.Int32, 181, "int4mi"},
	{514, "*", sql.Int32, sql.Int32, sql.Int32, 141, "int4mul"},
	{528, "/", sql.Int32, sql.Int32, sql.Int32, 154, "int4div"},
	{410, "=", sql.Int64, sql.Int64, sql.Boolean, 467, "int8eq"},
	{412, "<", sql.Int64, sql.Int64, sql.Boolean, 469, "int8lt"},
	{413, ">", sql.Int64, sql.Int64, sql.Boolean, 470, "int8gt"},
	{414, "<=", sql.Int64, sql.Int64, sql.Boolean, 471, "int8le"},
	{415, ">=", sql.Int64, sql.Int64, sql.Boolean, 472, "int8ge"},
	{411, "<>", sql.Int64, sql.Int64, sql.Boolean, 468, "int8ne"},
	{684, "+", sql.Int64, sql.Int64, sql.Int64, 463, "int8pl"},
	{685, "-", sql.Int64, sql.Int64, sql.Int64, 464, "int8mi"},
	{686, "*", sql.Int64, sql.Int64, sql.Int64, 465, "int8mul"},
	{687, "/", sql.Int64, sql.Int64, sql.Int64, 466, "int8div"},
	{94, "=", sql.Int16, sql.Int16, sql.Boolean, 63, "int2eq"},
	{95, "<", sql.Int16, sql.Int16, sql.Boolean, 64, "int2lt"},
	{670, "=", sql.Float64, sql.Float64, sql.Boolean, 293, "float8eq"},
	{672, "<", sql.Float64, sql.Float64, sql.Boolean, 295, "float8lt"},
	{674, ">", sql.Float64, sql.Float64, sql.Boolean, 297, "float8gt"},
	{673, "<=", sql.Float64, sql.Float64, sql.Boolean, 296, "float8le"},
	{675, ">=", sql.Float64, sql.Float64, sql.Boolean, 298, "float8ge"},
	{671, "<>", sql.Float64, sql.Float64, sql.Boolean, 294, "float8ne"},
	{591, "+", sql.Float64, sql.Float64, sql.Float64, 218, "float8pl"},
	{592, "-", sql.Float64, sql.Float64, sql.Float64, 219, "float8mi"},
	{594, "*", sql.Float64, sql.Float64, sql.Float64, 216, "float8mul"},
	{593, "/", sql.Float64, sql.Float64, sql.Float64, 217, "float8div"},
	{620, "=", sql.Float32, sql.Float32, sql.Boolean, 287, "float4eq"},
	{622, "<", sql.Float32, sql.Float32, sql.Boolean, 289, "float4lt"},
	{1752, "=", sql.Numeric, sql.Numeric, sql.Boolean, 1718, "numeric_eq"},
	{1754, "<", sql.Numeric, sql.Numeric, sql.Boolean, 1722, "numeric_lt"},
	{1756, ">", sql.Numeric, sql.Numeric, sql.Boolean, 1720, "numeric_gt"},
	{1755, "<=", sql.Numeric, sql.Numeric, sql.Boolean, 1723, "numeric_le"},
	{1757, ">=", sql.Numeric, sql.Numeric, sql.Boolean, 1721, "numeric_ge"},
	{1753, "<>", sql.Numeric, sql.Numeric, sql.Boolean, 1719, "numeric_ne"},
	{1758, "+", sql.Numeric, sql.Numeric, sql.Numeric, 1724, "numeric_add"},
	{1759, "-", sql.Numeric, sql.Numeric, sql.Numeric, 1725, "numeric_sub"},
	{1760, "*", sql.Numeric, sql.Numeric, sql.Numeric, 1726, "numeric_mul"},
	{1761, "/", sql.Numeric, sql.Numeric, sql.Numeric, 1727, "numeric_div"},
	{98, "=", sql.Text, sql.Text, sql.Boolean, 67, "texteq"},
	{664, "<", sql.Text, sql.Text, sql.Boolean, 740, "text_lt"},
	{666, ">", sql.Text, sql.Text, sql.Boolean, 742, "text_gt"},
	{531, "<>", sql.Text, sql.Text, sql.Boolean, 157, "textne"},
	{654, "||", sql.Text, sql.Text, sql.Text, 1258, "textcat"},
	{91, "=", sql.Boolean, sql.Boolean, sql.Boolean, 60, "booleq"},
	{58, "<", sql.Boolean, sql.Boolean, sql.Boolean, 56, "boollt"},
	{1320, "=", sql.TimestampTZ, sql.TimestampTZ, sql.Boolean, 1152, "timestamptz_eq"},
	{1322, "<", sql.TimestampTZ, sql.TimestampTZ, sql.Boolean, 1154, "timestamptz_lt"},
	{1324, ">", sql.TimestampTZ, sql.TimestampTZ, sql.Boolean, 1157, "timestamptz_gt"},
	{1323, "<=", sql.TimestampTZ, sql.TimestampTZ, sql.Boolean, 1155, "timestamptz_le"},
	{1325, ">=", sql.TimestampTZ, sql.TimestampTZ, sql.Boolean, 1156, "timestamptz_ge"},
	{1327, "+", sql.TimestampTZ, sql.Interval, sql.TimestampTZ, 1189, "timestamptz_pl_interval"},
	{1329, "-", sql.TimestampTZ, sql.Interval, sql.TimestampTZ, 1190, "timestamptz_mi_interval"},
	{2060, "=", sql.Timestamp, sql.Timestamp, sql.Boolean, 2052, "timestamp_eq"},
	{2062, "<", sql.Timestamp, sql.Timestamp, sql.Boolean, 2054, "timestamp_lt"},
	{2064, ">", sql.Timestamp, sql.Timestamp, sql.Boolean, 2057, "timestamp_gt"},
	{1093, "=", sql.Date, sql.Date, sql.Boolean, 1086, "date_eq"},
	{1095, "<", sql.Date, sql.Date, sql.Boolean, 1087, "date_lt"},
	{1330, "=", sql.Interval, sql.Interval, sql.Boolean, 1162, "interval_eq"},
	{1332, "<", sql.Interval, sql.Interval, sql.Boolean, 1164, "interval_lt"},
}

var collations = []sql.Collation{
	{OID: sql.DefaultCollationOID, Schema: sql.CatalogSchema, Name: "default"},
	{OID: sql.CCollationOID, Schema: sql.CatalogSchema, Name: "C"},
	{OID: sql.POSIXCollationOID, Schema: sql.CatalogSchema, Name: "POSIX"},
}

// finalize_agg is an aggregate that can itself be combined, so a
// continuous aggregate can be defined over the partial view.
func finalizeAggregate() (*sql.Function, *sql.Aggregate) {
	fn := &sql.Function{
		OID:        FinalizeAggOID,
		Schema:     sql.InternalSchema,
		Name:       "finalize_agg",
		ArgTypes:   []sql.Type{sql.Text, sql.Name, sql.Name, sql.Bytea, sql.AnyElement},
		ReturnType: sql.AnyElement,
		Volatility: sql.Immutable,
		Kind:       sql.AggregateFunction,
	}
	agg := &sql.Aggregate{
		FuncOID:      FinalizeAggOID,
		Kind:         sql.NormalAggregate,
		TransType:    sql.Internal,
		CombineFunc:  finalizeAggCombine,
		SerialFunc:   finalizeAggSerial,
		DeserialFunc: finalizeAggDeserial,
	}
	return fn, agg
}

func (s *snapshot) loadBuiltins() {
	for _, b := range aggregates {
		s.addFunction(&sql.Function{
			OID:        b.oid,
			Schema:     sql.CatalogSchema,
			Name:       b.name,
			ArgTypes:   b.args,
			ReturnType: b.ret,
			Volatility: b.volatility,
			Kind:       sql.AggregateFunction,
		})
		s.aggregates[b.oid] = &sql.Aggregate{
			FuncOID:      b.oid,
			Kind:         b.kind,
			TransType:    b.trans,
			CombineFunc:  b.combine,
			SerialFunc:   b.serial,
			DeserialFunc: b.deserial,
		}
	}

	fn, agg := finalizeAggregate()
	s.addFunction(fn)
	s.aggregates[agg.FuncOID] = agg

	for _, b := range functions {
		s.addFunction(&sql.Function{
			OID:        b.oid,
			Schema:     b.schema,
			Name:       b.name,
			ArgTypes:   b.args,
			ReturnType: b.ret,
			Volatility: b.volatility,
			Kind:       sql.NormalFunction,
			Strict:     true,
		})
	}

	for _, b := range operators {
		s.operators[b.oid] = &sql.Operator{
			OID:        b.oid,
			Name:       b.name,
			Left:       b.left,
			Right:      b.right,
			ResultType: b.ret,
			FuncOID:    b.funcOID,
		}
		volatility := sql.Immutable
		if b.left == sql.TimestampTZ && b.right == sql.Interval {
			volatility = sql.Stable
		}
		s.addFunction(&sql.Function{
			OID:        b.funcOID,
			Schema:     sql.CatalogSchema,
			Name:       b.funcName,
			ArgTypes:   []sql.Type{b.left, b.right},
			ReturnType: b.ret,
			Volatility: volatility,
			Kind:       sql.NormalFunction,
			Strict:     true,
		})
	}

	for i := range collations {
		c := collations[i]
		s.collations[c.OID] = &c
	}
}
