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

package plan

import (
	"fmt"
	"strings"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// ContinuousOption is the view option marking a continuous aggregate.
const ContinuousOption = "timescaledb.continuous"

// CreateView is a CREATE VIEW statement with its analyzed query.
type CreateView struct {
	Schema  string
	Name    string
	Aliases []string
	Options map[string]string
	Query   *Query
	// Definition is the text of the SELECT statement.
	Definition string
}

// NewCreateView creates a new CreateView node.
func NewCreateView(schema, name string, aliases []string, options map[string]string, q *Query, definition string) *CreateView {
	if options == nil {
		options = make(map[string]string)
	}
	return &CreateView{
		Schema:     schema,
		Name:       name,
		Aliases:    aliases,
		Options:    options,
		Query:      q,
		Definition: definition,
	}
}

// IsContinuous reports whether the view is declared as a continuous
// aggregate.
func (c *CreateView) IsContinuous() bool {
	v, ok := c.Options[ContinuousOption]
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "", "true", "on", "yes", "1":
		return true
	default:
		return false
	}
}

func (c *CreateView) String() string {
	var sb strings.Builder
	sb.WriteString("CREATE VIEW ")
	if c.Schema != "" {
		sb.WriteString(sql.QuoteIdentifier(c.Schema) + ".")
	}
	sb.WriteString(sql.QuoteIdentifier(c.Name))
	if len(c.Aliases) > 0 {
		aliases := make([]string, len(c.Aliases))
		for i, a := range c.Aliases {
			aliases[i] = sql.QuoteIdentifier(a)
		}
		sb.WriteString(fmt.Sprintf(" (%s)", strings.Join(aliases, ", ")))
	}
	sb.WriteString(" AS ")
	if c.Query != nil {
		sb.WriteString(c.Query.String())
	} else {
		sb.WriteString(c.Definition)
	}
	return sb.String()
}
