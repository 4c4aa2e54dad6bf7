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
	opentracing "github.com/opentracing/opentracing-go"
	"gopkg.in/src-d/go-cagg.v0/sql"
)

// RuleFunc is the function to be applied in a rule.
type RuleFunc func(*sql.Context, *Analyzer, *Scope) error

// Rule is one step of the rewrite.
type Rule struct {
	// Name of the rule.
	Name string
	// Apply runs the rule on the scope.
	Apply RuleFunc
}

// Batch executes a set of rules once, in order, stopping at the first
// error.
type Batch struct {
	Desc  string
	Rules []Rule
}

// Eval executes the rules of the Batch on the scope.
func (b *Batch) Eval(ctx *sql.Context, a *Analyzer, s *Scope) error {
	for _, rule := range b.Rules {
		if err := b.evalRule(ctx, a, s, rule); err != nil {
			return err
		}
	}

	return nil
}

func (b *Batch) evalRule(ctx *sql.Context, a *Analyzer, s *Scope, rule Rule) error {
	span, ctx := ctx.Span(rule.Name, opentracing.Tags{
		"batch": b.Desc,
	})
	defer span.Finish()

	a.PushDebugContext(rule.Name)
	defer a.PopDebugContext()

	a.Log("evaluating rule")
	return rule.Apply(ctx, a, s)
}
