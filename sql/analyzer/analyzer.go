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
	"fmt"
	"os"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-errors.v1"
)

const debugAnalyzerKey = "DEBUG_ANALYZER"

// ErrInAnalysis is thrown for generic analyzer errors
var ErrInAnalysis = errors.NewKind("error in analysis: %s")

// Builder provides an easy way to generate Analyzer with custom rules and options.
type Builder struct {
	postAssemblyRules []Rule
	catalog           sql.Catalog
	debug             bool
	verbose           bool
}

// NewBuilder creates a new Builder from a specific catalog.
// This builder allow us add custom Rules and modify some internal properties.
func NewBuilder(c sql.Catalog) *Builder {
	return &Builder{catalog: c}
}

// WithDebug activates debug on the Analyzer.
func (ab *Builder) WithDebug() *Builder {
	ab.debug = true

	return ab
}

// WithVerbose makes the Analyzer print the queries it assembles.
func (ab *Builder) WithVerbose() *Builder {
	ab.verbose = true

	return ab
}

// AddPostAssemblyRule adds a new rule to the analyzer after the queries are
// assembled.
func (ab *Builder) AddPostAssemblyRule(name string, fn RuleFunc) *Builder {
	ab.postAssemblyRules = append(ab.postAssemblyRules, Rule{name, fn})

	return ab
}

// Build creates a new Analyzer using all previous data setted to the Builder
func (ab *Builder) Build() *Analyzer {
	_, debug := os.LookupEnv(debugAnalyzerKey)
	var batches = []*Batch{
		&Batch{
			Desc:  "validation",
			Rules: ValidationRules,
		},
		&Batch{
			Desc:  "rewrite",
			Rules: RewriteRules,
		},
		&Batch{
			Desc:  "assembly",
			Rules: AssemblyRules,
		},
		&Batch{
			Desc:  "post-assembly",
			Rules: ab.postAssemblyRules,
		},
	}

	return &Analyzer{
		Debug:    debug || ab.debug,
		Verbose:  ab.verbose,
		debugCtx: make([]string, 0),
		Batches:  batches,
		Catalog:  ab.catalog,
	}
}

// Analyzer rewrites continuous aggregate definitions into their
// materialization. An Analyzer keeps a debug context while it runs and must
// not be used by several goroutines at once.
type Analyzer struct {
	// Whether to log various debugging messages
	Debug bool
	// Whether to output the assembled queries
	Verbose  bool
	debugCtx []string
	// Batches of Rules to apply.
	Batches []*Batch
	// Catalog of relations and functions.
	Catalog sql.Catalog
}

// NewDefault creates a default Analyzer instance with all default Rules and configuration.
// To add custom rules, the easiest way is use the Builder.
func NewDefault(c sql.Catalog) *Analyzer {
	return NewBuilder(c).Build()
}

// Log prints an INFO message to stdout with the given message and args
// if the analyzer is in debug mode.
func (a *Analyzer) Log(msg string, args ...interface{}) {
	if a != nil && a.Debug {
		if len(a.debugCtx) > 0 {
			ctx := strings.Join(a.debugCtx, "/")
			logrus.Infof("%s: "+msg, append([]interface{}{ctx}, args...)...)
		} else {
			logrus.Infof(msg, args...)
		}
	}
}

// LogQuery prints the query given if Verbose logging is enabled.
func (a *Analyzer) LogQuery(name string, q *plan.Query) {
	if a != nil && q != nil && a.Verbose {
		if len(a.debugCtx) > 0 {
			ctx := strings.Join(a.debugCtx, "/")
			fmt.Printf("%s: %s: %s\n", ctx, name, q)
		} else {
			fmt.Printf("%s: %s\n", name, q)
		}
	}
}

// PushDebugContext pushes the given context string onto the context stack, to use when logging debug messages.
func (a *Analyzer) PushDebugContext(msg string) {
	if a != nil {
		a.debugCtx = append(a.debugCtx, msg)
	}
}

// PopDebugContext pops a context message off the context stack.
func (a *Analyzer) PopDebugContext() {
	if a != nil && len(a.debugCtx) > 0 {
		a.debugCtx = a.debugCtx[:len(a.debugCtx)-1]
	}
}

// Analyze validates the continuous aggregate definition and rewrites it
// into its materialization. On error nothing is returned and nothing has
// been created.
func (a *Analyzer) Analyze(ctx *sql.Context, cv *plan.CreateView) (*plan.Materialization, error) {
	span, ctx := ctx.Span("analyze", opentracing.Tags{
		"view": cv.Name,
	})
	defer span.Finish()

	s, err := a.newScope(cv)
	if err != nil {
		return nil, err
	}

	a.PushDebugContext("continuous-aggregate")
	defer a.PopDebugContext()

	a.Log("starting analysis of continuous aggregate %s", cv.Name)
	for _, batch := range a.Batches {
		a.PushDebugContext(batch.Desc)
		err = batch.Eval(ctx, a, s)
		a.PopDebugContext()
		if err != nil {
			span.SetTag("error", true)
			return nil, err
		}
	}

	if s.result == nil {
		return nil, ErrInAnalysis.New("no materialization was assembled")
	}

	return s.result, nil
}

// Validate runs only the validation rules on the query and returns its
// bucketing specification. Validation has no side effects, so it yields
// the same result when repeated.
func (a *Analyzer) Validate(ctx *sql.Context, q *plan.Query) (plan.BucketingSpec, error) {
	span, ctx := ctx.Span("validate")
	defer span.Finish()

	s, err := a.newScope(plan.NewCreateView("", "", nil, nil, q, ""))
	if err != nil {
		return plan.BucketingSpec{}, err
	}

	batch := &Batch{Desc: "validation", Rules: ValidationRules}
	a.PushDebugContext(batch.Desc)
	err = batch.Eval(ctx, a, s)
	a.PopDebugContext()
	if err != nil {
		return plan.BucketingSpec{}, err
	}

	return *s.spec, nil
}

func (a *Analyzer) newScope(cv *plan.CreateView) (*Scope, error) {
	if cv.Query == nil {
		return nil, ErrInAnalysis.New("view has no query")
	}

	registry, err := NewRegistry(a.Catalog)
	if err != nil {
		return nil, err
	}

	return &Scope{
		view:     cv,
		query:    cv.Query,
		catalog:  a.Catalog,
		registry: registry,
	}, nil
}
