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

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrUnsupportedQueryShape is returned when the query defining a
	// continuous aggregate uses a construct that cannot be materialized.
	ErrUnsupportedQueryShape = errors.NewKind("invalid continuous aggregate query: %s")

	// ErrUnsupportedAggregate is returned when an aggregate cannot be split
	// into a partial and a final step.
	ErrUnsupportedAggregate = errors.NewKind("unsupported aggregate %s: %s")

	// ErrNonDeterministicExpression is returned when a materialized
	// expression calls a function that is not immutable.
	ErrNonDeterministicExpression = errors.NewKind("only immutable functions are supported for continuous aggregate query: %s " +
		"(many time-based functions that are not immutable have immutable alternatives that require specifying the timezone explicitly)")

	// ErrNamingError is returned when the declared column names do not
	// match the query or a generated name is invalid.
	ErrNamingError = errors.NewKind("%s")

	// ErrDuplicateDefinition is returned when a continuous aggregate with
	// the same name already exists.
	ErrDuplicateDefinition = errors.NewKind("continuous aggregate query %q already exists: drop and recreate if needed")

	// ErrInvalidBucketWidth is returned when the bucket width constant
	// cannot be converted to an internal width.
	ErrInvalidBucketWidth = errors.NewKind("invalid time_bucket width %s: %s")

	// ErrAggregateNotFound is returned when aggregate metadata is missing.
	ErrAggregateNotFound = errors.NewKind("cache lookup failed for aggregate %s")

	// ErrFunctionNotFound is returned when a function cannot be resolved.
	ErrFunctionNotFound = errors.NewKind("function %s does not exist")

	// ErrRelationNotFound is returned when a relation cannot be resolved.
	ErrRelationNotFound = errors.NewKind("relation %s does not exist")

	// ErrCollationNotFound is returned when a collation OID is unknown.
	ErrCollationNotFound = errors.NewKind("cache lookup failed for collation %d")

	// ErrTypeNotFound is returned for an unknown type name.
	ErrTypeNotFound = errors.NewKind("type %q does not exist")

	// ErrInvalidInterval is returned when an interval literal is malformed.
	ErrInvalidInterval = errors.NewKind("invalid input syntax for type interval: %q")

	// ErrInvalidChildrenNumber is returned when the WithChildren method of a
	// node or expression is called with an invalid number of arguments.
	ErrInvalidChildrenNumber = errors.NewKind("%T: invalid children number, got %d, expected %d")

	// ErrInternal is returned for conditions that indicate a bug or a
	// corrupt catalog.
	ErrInternal = errors.NewKind("internal error: %s")
)
