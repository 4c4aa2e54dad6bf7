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
	"reflect"

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// Equal reports whether two expression trees are structurally identical:
// same node kinds, same attributes and equal children, in order.
func Equal(a, b sql.Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	if !reflect.DeepEqual(attributesOf(a), attributesOf(b)) {
		return false
	}

	ac, bc := a.Children(), b.Children()
	if len(ac) != len(bc) {
		return false
	}

	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}

	return true
}

func attributesOf(e sql.Expression) []interface{} {
	if a, ok := e.(attributer); ok {
		return a.attributes()
	}
	return []interface{}{e.String()}
}
