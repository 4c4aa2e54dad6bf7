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

	"gopkg.in/src-d/go-cagg.v0/sql"
)

// OpExpr is a binary operator applied to two expressions.
type OpExpr struct {
	BinaryExpression
	OpOID           sql.OID
	FuncOID         sql.OID
	Op              string
	ResultType      sql.Type
	ResultCollation sql.OID
}

// NewOpExpr creates a new operator expression.
func NewOpExpr(op *sql.Operator, left, right sql.Expression) *OpExpr {
	args := []sql.Expression{left, right}
	return &OpExpr{
		BinaryExpression: BinaryExpression{Left: left, Right: right},
		OpOID:            op.OID,
		FuncOID:          op.FuncOID,
		Op:               op.Name,
		ResultType:       op.ResultType,
		ResultCollation:  resultCollation(op.ResultType, args),
	}
}

// Type implements the Expression interface.
func (o *OpExpr) Type() sql.Type { return o.ResultType }

// Typmod implements the Expression interface.
func (*OpExpr) Typmod() int32 { return -1 }

// Collation implements the Expression interface.
func (o *OpExpr) Collation() sql.OID { return o.ResultCollation }

// WithChildren implements the Expression interface.
func (o *OpExpr) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(o, len(children), 2)
	}
	no := *o
	no.Left, no.Right = children[0], children[1]
	return &no, nil
}

func (o *OpExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", o.Left, o.Op, o.Right)
}

func (o *OpExpr) attributes() []interface{} {
	return []interface{}{"op", uint32(o.OpOID), uint32(o.FuncOID), uint32(o.ResultType.OID)}
}
