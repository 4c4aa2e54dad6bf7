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

package parse // import "gopkg.in/src-d/go-cagg.v0/sql/parse"

import (
	"bufio"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-errors.v1"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"
)

var (
	// ErrUnsupportedSyntax is thrown when a specific syntax is not already supported
	ErrUnsupportedSyntax = errors.NewKind("unsupported syntax: %s")

	// ErrUnsupportedFeature is thrown when a feature is not already supported
	ErrUnsupportedFeature = errors.NewKind("unsupported feature: %s")

	// ErrInvalidSQLValType is returned when a SQLVal type is not valid.
	ErrInvalidSQLValType = errors.NewKind("invalid SQLVal of type: %d")

	// ErrColumnNotFound is returned when a column reference cannot be
	// resolved against the FROM clause.
	ErrColumnNotFound = errors.NewKind("column %q does not exist%s")

	// ErrAmbiguousColumn is returned when a column name matches more than
	// one relation of the FROM clause.
	ErrAmbiguousColumn = errors.NewKind("column reference %q is ambiguous")

	// ErrOperatorNotFound is returned when no operator accepts the types
	// of its operands.
	ErrOperatorNotFound = errors.NewKind("operator does not exist: %s %s %s")

	// ErrInvalidCreateView is returned when the statement is not a valid
	// CREATE VIEW.
	ErrInvalidCreateView = errors.NewKind("invalid CREATE VIEW statement: %s")

	// ErrMalformedCreateView is returned when the view definition is not a
	// SELECT query.
	ErrMalformedCreateView = errors.NewKind("view definition %q is not a SELECT query")

	// ErrInvalidLiteral is returned when a constant cannot be converted to
	// the type it is used as.
	ErrInvalidLiteral = errors.NewKind("invalid input syntax for type %s: %q")
)

// Parse parses a CREATE VIEW statement and resolves its query against the
// catalog.
func Parse(ctx *sql.Context, cat sql.Catalog, query string) (*plan.CreateView, error) {
	span, ctx := ctx.Span("parse", opentracing.Tag{Key: "query", Value: query})
	defer span.Finish()

	s := strings.TrimSpace(removeComments(query))
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, ErrInvalidCreateView.New("empty query")
	}

	cv, err := parseCreateView(s)
	if err != nil {
		return nil, err
	}

	q, err := ParseSelect(ctx, cat, cv.Definition)
	if err != nil {
		return nil, err
	}
	cv.Query = q

	ctx.Logger().WithField("view", cv.Name).Debugf("parsed view definition: %s", q)
	return cv, nil
}

// ParseSelect parses a SELECT statement and resolves it against the
// catalog.
func ParseSelect(ctx *sql.Context, cat sql.Catalog, query string) (*plan.Query, error) {
	s := strings.TrimSpace(removeComments(query))
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))

	stmt, err := sqlparser.Parse(s)
	if err != nil {
		return nil, err
	}

	sel, ok := stmt.(sqlparser.SelectStatement)
	if !ok {
		return nil, ErrMalformedCreateView.New(s)
	}

	return newConverter(cat).selectStatement(sel)
}

// parseCreateView parses
// CREATE VIEW [schema.]name [(col, ...)] [WITH (option [= value], ...)] AS select
// leaving the query unresolved.
func parseCreateView(s string) (*plan.CreateView, error) {
	r := bufio.NewReader(strings.NewReader(s))

	var (
		schema, name, definition string
		columns                  []string
		isReplace, hasOptions    bool
		options                  = make(map[string]string)
	)

	err := parseFuncs{
		expect("create"),
		skipSpaces,
		maybe(&isReplace, "or", "replace"),
		skipSpaces,
		expect("view"),
		skipSpaces,
		readQualifiedIdent(&schema, &name),
		skipSpaces,
		maybeList('(', ',', ')', &columns),
		skipSpaces,
		maybe(&hasOptions, "with"),
		skipSpaces,
		func(r *bufio.Reader) error {
			if !hasOptions {
				return nil
			}
			return parseFuncs{readOptions(options), skipSpaces}.exec(r)
		},
		expect("as"),
		skipSpaces,
		readRemaining(&definition),
	}.exec(r)
	if err != nil {
		return nil, ErrInvalidCreateView.Wrap(err, s)
	}

	if isReplace {
		return nil, ErrUnsupportedFeature.New("CREATE OR REPLACE VIEW")
	}

	definition = strings.TrimSpace(definition)
	if definition == "" {
		return nil, ErrInvalidCreateView.New(s)
	}

	return plan.NewCreateView(schema, name, columns, options, nil, definition), nil
}
