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

// Command cagg creates continuous aggregates on a catalog described by a
// YAML fixture and keeps their records in a local store.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/src-d/go-cagg.v0"
	"gopkg.in/src-d/go-cagg.v0/config"
)

func newRootCommand() *cobra.Command {
	var (
		configPath string
		conf       = config.Default()
	)

	root := &cobra.Command{
		Use:           "cagg",
		Short:         "Create continuous aggregates on hypertables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		c, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}

		flags := cmd.Flags()
		if flags.Changed("catalog") {
			c.Catalog = conf.Catalog
		}
		if flags.Changed("store") {
			c.StorePath = conf.StorePath
		}
		if flags.Changed("debug") {
			c.Debug = conf.Debug
		}
		if flags.Changed("verbose") {
			c.Verbose = conf.Verbose
		}
		return c, c.Validate()
	}

	flags := root.PersistentFlags()
	flags.StringVar(&conf.Catalog, "catalog", "", "YAML catalog fixture")
	flags.StringVar(&conf.StorePath, "store", "", "directory of the record store")
	flags.BoolVar(&conf.Debug, "debug", false, "log every analyzer rule")
	flags.BoolVar(&conf.Verbose, "verbose", false, "print the assembled queries")

	open := func(cmd *cobra.Command) (*cagg.Engine, error) {
		c, err := load(cmd)
		if err != nil {
			return nil, err
		}
		return cagg.NewFromConfig(c)
	}

	root.AddCommand(
		newCreateCommand(open),
		newExplainCommand(open),
		newListCommand(load),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %s", err))
		os.Exit(1)
	}
}
