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
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/src-d/go-cagg.v0"
)

func newExplainCommand(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain [statement]",
		Short: "Show the materialization of a continuous aggregate without creating it",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd, args)
			if err != nil {
				return err
			}

			e, err := open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, err := cagg.NewContext(context.Background(), query)
			if err != nil {
				return err
			}

			m, err := e.Explain(ctx, query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading(out, "materialization table %s.%s", m.MatTableSchema, m.MatTableName)
			if err := renderMaterialization(out, m); err != nil {
				return err
			}

			heading(out, "partial view %s.%s", m.PartialViewSchema, m.PartialViewName)
			fmt.Fprintln(out, m.PopulateQuery)

			heading(out, "view %s.%s", m.UserViewSchema, m.UserViewName)
			fmt.Fprintln(out, m.ViewQuery)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "read the statement from a file")
	return cmd
}
