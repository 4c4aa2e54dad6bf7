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

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/src-d/go-cagg.v0/sql"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
)

var headingColor = color.New(color.FgCyan, color.Bold)

func heading(w io.Writer, format string, args ...interface{}) {
	headingColor.Fprintf(w, "\n"+format+"\n\n", args...)
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	alignment := make([]tw.Align, len(header))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderMaterialization(w io.Writer, m *plan.Materialization) error {
	rows := make([][]string, len(m.Columns))
	for i, c := range m.Columns {
		collation := ""
		if c.Collation.IsValid() {
			collation = c.Collation.String()
		}
		rows[i] = []string{strconv.Itoa(i + 1), c.Name, typeName(c.Type, c.Typmod), collation, c.Role.String()}
	}
	return renderTable(w, []string{"#", "column", "type", "collation", "role"}, rows)
}

func renderRecords(w io.Writer, recs ...*plan.ContinuousAggRecord) error {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{
			r.UserViewSchema + "." + r.UserViewName,
			r.PartialViewSchema + "." + r.PartialViewName,
			strconv.Itoa(int(r.RawHypertableID)),
			strconv.Itoa(int(r.MatHypertableID)),
			strconv.FormatInt(r.BucketWidth, 10),
			strconv.FormatInt(r.RefreshLag, 10),
			strconv.Itoa(int(r.JobID)),
		}
	}
	return renderTable(w, []string{"view", "partial view", "raw hypertable", "mat hypertable", "bucket width", "refresh lag", "job"}, rows)
}

func typeName(t sql.Type, typmod int32) string {
	if typmod < 0 {
		return t.Name
	}
	return fmt.Sprintf("%s(%d)", t.Name, typmod)
}
