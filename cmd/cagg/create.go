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
	"io/ioutil"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/src-d/go-cagg.v0"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrNoQuery is returned when a command is given no statement.
var ErrNoQuery = errors.NewKind("no CREATE VIEW statement given")

type openFunc func(cmd *cobra.Command) (*cagg.Engine, error)

// readQuery returns the statement given in the file flag or, if it is not
// set, the arguments.
func readQuery(cmd *cobra.Command, args []string) (string, error) {
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return "", err
	}

	query := strings.Join(args, " ")
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return "", err
		}
		query = string(data)
	}

	if strings.TrimSpace(query) == "" {
		return "", ErrNoQuery.New()
	}
	return query, nil
}

func newCreateCommand(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [statement]",
		Short: "Create a continuous aggregate",
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

			rec, err := e.Create(ctx, query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading(out, "continuous aggregate %s.%s", rec.UserViewSchema, rec.UserViewName)
			return renderRecords(out, rec)
		},
	}
	cmd.Flags().StringP("file", "f", "", "read the statement from a file")
	return cmd
}
