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

	"github.com/spf13/cobra"
	"gopkg.in/src-d/go-cagg.v0/config"
	"gopkg.in/src-d/go-cagg.v0/store"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrNoStore is returned when listing without a record store.
var ErrNoStore = errors.NewKind("no record store configured")

func newListCommand(load func(cmd *cobra.Command) (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the continuous aggregates of the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			if c.StorePath == "" {
				return ErrNoStore.New()
			}

			s, err := store.Open(c.StorePath)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "no continuous aggregates")
				return nil
			}
			return renderRecords(out, recs...)
		},
	}
}
