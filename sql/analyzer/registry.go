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
	"strings"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

const (
	// BucketFuncName is the name of the bucketing function overloads.
	BucketFuncName = "time_bucket"
	// PartializeFuncName computes the serialized partial state of an
	// aggregate.
	PartializeFuncName = "partialize_agg"
	// FinalizeFuncName is the aggregate combining serialized partial states.
	FinalizeFuncName = "finalize_agg"
	// ChunkForTupleFuncName returns the chunk a row of a hypertable lives in.
	ChunkForTupleFuncName = "chunk_for_tuple"

	// PartitionColumnName is the name of the bucket column of the
	// materialization table.
	PartitionColumnName = "time_partition_col"
	// ChunkIDColumnName is the name of the chunk locator column.
	ChunkIDColumnName = "chunk_id"

	matColumnPrefix       = "tscol"
	matTableNameFormat    = "ts_internal_%stab"
	partialViewNameFormat = "ts_internal_%sview"
)

// Registry holds the identities of the functions the rewrite generates or
// recognizes, resolved once from the catalog.
type Registry struct {
	bucketFuncs   map[sql.OID]*sql.Function
	Partialize    *sql.Function
	Finalize      *sql.Function
	ChunkForTuple *sql.Function
}

// NewRegistry resolves the rewrite functions from the catalog.
func NewRegistry(fns sql.FunctionLookup) (*Registry, error) {
	r := &Registry{bucketFuncs: make(map[sql.OID]*sql.Function)}
	for _, fn := range fns.FunctionsByName(sql.PublicSchema, BucketFuncName) {
		r.bucketFuncs[fn.OID] = fn
	}
	if len(r.bucketFuncs) == 0 {
		return nil, sql.ErrFunctionNotFound.New(BucketFuncName)
	}

	var err error
	r.Partialize, err = lookupInternal(fns, PartializeFuncName, sql.AnyElement)
	if err != nil {
		return nil, err
	}

	r.Finalize, err = lookupInternal(fns, FinalizeFuncName, sql.Text, sql.Name, sql.Name, sql.Bytea, sql.AnyElement)
	if err != nil {
		return nil, err
	}

	r.ChunkForTuple, err = lookupInternal(fns, ChunkForTupleFuncName, sql.Int32, sql.AnyElement)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// IsBucketFunc reports whether oid is one of the time_bucket overloads.
func (r *Registry) IsBucketFunc(oid sql.OID) bool {
	_, ok := r.bucketFuncs[oid]
	return ok
}

func lookupInternal(fns sql.FunctionLookup, name string, args ...sql.Type) (*sql.Function, error) {
	for _, fn := range fns.FunctionsByName(sql.InternalSchema, name) {
		if typesEqual(fn.ArgTypes, args) {
			return fn, nil
		}
	}
	return nil, sql.ErrFunctionNotFound.New(sql.InternalSchema + "." + name)
}

func typesEqual(a, b []sql.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ResolveSignature finds the function printed as sig by
// sql.Function.Signature.
func ResolveSignature(fns sql.FunctionLookup, sig string) (*sql.Function, error) {
	open := strings.Index(sig, "(")
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return nil, sql.ErrFunctionNotFound.New(sig)
	}

	schema, name := "", unquote(sig[:open])
	if dot := strings.LastIndex(sig[:open], "."); dot >= 0 {
		schema, name = unquote(sig[:dot]), unquote(sig[dot+1:open])
	}

	var args []sql.Type
	if inner := strings.TrimSpace(sig[open+1 : len(sig)-1]); inner != "" {
		for _, a := range strings.Split(inner, ",") {
			t, err := sql.TypeByName(a)
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
	}

	for _, fn := range fns.FunctionsByName(schema, name) {
		if typesEqual(fn.ArgTypes, args) {
			return fn, nil
		}
	}
	return nil, sql.ErrFunctionNotFound.New(sig)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.Replace(s[1:len(s)-1], `""`, `"`, -1)
	}
	return s
}
