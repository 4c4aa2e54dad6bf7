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

package expression

import (
	"fmt"

	"github.com/mitchellh/hashstructure"
	"gopkg.in/src-d/go-cagg.v0/sql"
)

type fingerprint struct {
	Kind       string
	Attributes []string
	Children   []uint64
}

// Hash returns a structural hash of the expression. Expressions that are
// Equal hash to the same value.
func Hash(e sql.Expression) (uint64, error) {
	if e == nil {
		return 0, nil
	}

	children := e.Children()
	fp := fingerprint{
		Kind:     fmt.Sprintf("%T", e),
		Children: make([]uint64, len(children)),
	}

	for _, a := range attributesOf(e) {
		fp.Attributes = append(fp.Attributes, fmt.Sprintf("%T:%v", a, a))
	}

	for i, c := range children {
		h, err := Hash(c)
		if err != nil {
			return 0, err
		}
		fp.Children[i] = h
	}

	return hashstructure.Hash(fp, nil)
}
