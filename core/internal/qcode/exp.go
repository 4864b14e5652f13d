package qcode

import (
	"fmt"
)

type ExpOp int8

const (
	OpNop ExpOp = iota
	OpAnd
	OpOr
	OpNot
	OpEquals
	OpNotEquals
	OpGreaterOrEquals
	OpLesserOrEquals
	OpGreaterThan
	OpLesserThan
	OpLike
	OpIsNull
	OpIsNotNull

	// spatial predicates, keep OpBBox first and OpBeyond last
	OpBBox
	OpContains
	OpCrosses
	OpDisjoint
	OpSpatialEquals
	OpIntersects
	OpOverlaps
	OpTouches
	OpWithin
	OpDWithin
	OpBeyond
)

var opNames = [...]string{
	OpNop:             "nop",
	OpAnd:             "and",
	OpOr:              "or",
	OpNot:             "not",
	OpEquals:          "eq",
	OpNotEquals:       "neq",
	OpGreaterOrEquals: "gte",
	OpLesserOrEquals:  "lte",
	OpGreaterThan:     "gt",
	OpLesserThan:      "lt",
	OpLike:            "like",
	OpIsNull:          "is_null",
	OpIsNotNull:       "is_not_null",
	OpBBox:            "st_bbox",
	OpContains:        "st_contains",
	OpCrosses:         "st_crosses",
	OpDisjoint:        "st_disjoint",
	OpSpatialEquals:   "st_equals",
	OpIntersects:      "st_intersects",
	OpOverlaps:        "st_overlaps",
	OpTouches:         "st_touches",
	OpWithin:          "st_within",
	OpDWithin:         "st_dwithin",
	OpBeyond:          "st_beyond",
}

func (op ExpOp) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return fmt.Sprintf("ExpOp(%d)", int(op))
	}
	return opNames[op]
}

// IsSpatial reports whether op is one of the binary spatial predicates.
func (op ExpOp) IsSpatial() bool {
	return op >= OpBBox && op <= OpBeyond
}

// IsDistance reports whether op compares the distance between operands.
func (op ExpOp) IsDistance() bool {
	return op == OpDWithin || op == OpBeyond
}

// LookupOp returns the operator for its filter document name.
func LookupOp(name string) (ExpOp, bool) {
	for i, n := range opNames {
		if n == name {
			return ExpOp(i), true
		}
	}
	return OpNop, false
}

type ExprKind int8

const (
	ExprLiteral ExprKind = iota
	ExprProperty
)

// Expression is a predicate operand, a property reference or a literal.
// Literal values are go-geom geometries, orb geometries and bounds,
// bool, time.Time, strings, numbers or nil.
type Expression struct {
	Kind ExprKind
	Name string
	Val  interface{}
}

func Property(name string) Expression {
	return Expression{Kind: ExprProperty, Name: name}
}

func Literal(val interface{}) Expression {
	return Expression{Kind: ExprLiteral, Val: val}
}

func (e Expression) IsProperty() bool {
	return e.Kind == ExprProperty
}

// Exp is a filter tree node. Logical nodes use Children, comparisons and
// spatial predicates use Left and Right.
type Exp struct {
	Op       ExpOp
	Left     Expression
	Right    Expression
	Children []*Exp

	// Swapped is set when the property is the second operand
	Swapped bool

	// Distance is used by OpDWithin and OpBeyond
	Distance float64
}

func newExpOp(op ExpOp) *Exp {
	return &Exp{Op: op}
}

// NewSpatial builds a binary spatial predicate over a and b in their
// original order.
func NewSpatial(op ExpOp, a, b Expression) *Exp {
	ex := newExpOp(op)
	ex.Left = a
	ex.Right = b
	ex.Swapped = !a.IsProperty() && b.IsProperty()
	return ex
}

// NewDistance builds a DWithin or Beyond predicate.
func NewDistance(op ExpOp, a, b Expression, distance float64) *Exp {
	ex := NewSpatial(op, a, b)
	ex.Distance = distance
	return ex
}

func NewCompare(op ExpOp, col string, val interface{}) *Exp {
	ex := newExpOp(op)
	ex.Left = Property(col)
	ex.Right = Literal(val)
	return ex
}

func And(children ...*Exp) *Exp {
	return logical(OpAnd, children)
}

func Or(children ...*Exp) *Exp {
	return logical(OpOr, children)
}

func Not(child *Exp) *Exp {
	ex := newExpOp(OpNot)
	ex.Children = []*Exp{child}
	return ex
}

func logical(op ExpOp, children []*Exp) *Exp {
	var c []*Exp
	for _, ch := range children {
		if ch != nil {
			c = append(c, ch)
		}
	}
	switch len(c) {
	case 0:
		return nil
	case 1:
		return c[0]
	}
	ex := newExpOp(op)
	ex.Children = c
	return ex
}

// Property returns the operand the predicate is evaluated on.
func (ex *Exp) Property() Expression {
	if ex.Swapped {
		return ex.Right
	}
	return ex.Left
}

// Other returns the operand the property is compared against.
func (ex *Exp) Other() Expression {
	if ex.Swapped {
		return ex.Left
	}
	return ex.Right
}

// Walk visits every node depth first, children in order. Returning
// false from fn skips the node's children.
func (ex *Exp) Walk(fn func(*Exp) bool) {
	if ex == nil {
		return
	}
	st := []*Exp{ex}

	for len(st) != 0 {
		e := st[len(st)-1]
		st = st[:len(st)-1]

		if !fn(e) {
			continue
		}
		for i := len(e.Children) - 1; i >= 0; i-- {
			if e.Children[i] != nil {
				st = append(st, e.Children[i])
			}
		}
	}
}
