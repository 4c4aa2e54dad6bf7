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

// ValidationRules reject queries that cannot be materialized and compute
// the bucketing specification.
var ValidationRules = []Rule{
	{"validate_query_shape", validateQueryShape},
	{"validate_aggregates", validateAggregates},
	{"validate_source_relation", validateSourceRelation},
	{"validate_bucketing", validateBucketing},
}

// RewriteRules split the query into its partial and final halves.
var RewriteRules = []Rule{
	{"partialize_target_list", partializeTargetList},
	{"rewrite_having", rewriteHaving},
	{"add_internal_columns", addInternalColumns},
}

// AssemblyRules build the materialization from the rewritten parts.
var AssemblyRules = []Rule{
	{"assemble_queries", assembleQueries},
}
