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

package cagg

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-cagg.v0/sql"
)

// QueryLogField is the log field holding the statement being run.
const QueryLogField = "query"

// NewContext returns the context to run a statement with. Its logger is
// tagged with the statement.
func NewContext(ctx context.Context, query string, opts ...sql.ContextOption) (*sql.Context, error) {
	logger := logrus.WithField(QueryLogField, query)
	opts = append([]sql.ContextOption{sql.WithQuery(query), sql.WithLogger(logger)}, opts...)
	return sql.NewContext(ctx, opts...)
}
