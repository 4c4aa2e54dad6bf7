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

package parse

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveComments(t *testing.T) {
	require := require.New(t)

	s := removeComments("SELECT 1 -- trailing\n/* block\ncomment */ FROM t WHERE a = '-- not a comment'")
	require.Equal("SELECT 1 \n  FROM t WHERE a = '-- not a comment'", s)
}

func TestReadOptions(t *testing.T) {
	require := require.New(t)

	opts := make(map[string]string)
	r := bufio.NewReader(strings.NewReader(`(timescaledb.continuous, timescaledb.refresh_interval = '5 min', fillfactor=70)`))
	require.NoError(readOptions(opts)(r))

	require.Equal(map[string]string{
		"timescaledb.continuous":       "",
		"timescaledb.refresh_interval": "5 min",
		"fillfactor":                   "70",
	}, opts)
}

func TestReadQualifiedIdent(t *testing.T) {
	testCases := []struct {
		input, schema, name string
	}{
		{"foo", "", "foo"},
		{"Public.Foo", "public", "foo"},
		{`"My Schema"."Mixed"`, "My Schema", "Mixed"},
	}

	for _, tt := range testCases {
		t.Run(tt.input, func(t *testing.T) {
			require := require.New(t)
			var schema, name string
			r := bufio.NewReader(strings.NewReader(tt.input))
			require.NoError(readQualifiedIdent(&schema, &name)(r))
			require.Equal(tt.schema, schema)
			require.Equal(tt.name, name)
		})
	}
}
