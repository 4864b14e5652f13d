package qcode_test

import (
	"testing"

	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/stretchr/testify/assert"
)

func TestOpClassification(t *testing.T) {
	spatial := []qcode.ExpOp{
		qcode.OpBBox, qcode.OpContains, qcode.OpCrosses, qcode.OpDisjoint,
		qcode.OpSpatialEquals, qcode.OpIntersects, qcode.OpOverlaps,
		qcode.OpTouches, qcode.OpWithin, qcode.OpDWithin, qcode.OpBeyond,
	}
	for _, op := range spatial {
		assert.True(t, op.IsSpatial(), op.String())
	}

	for _, op := range []qcode.ExpOp{qcode.OpAnd, qcode.OpEquals, qcode.OpIsNull} {
		assert.False(t, op.IsSpatial(), op.String())
	}

	assert.True(t, qcode.OpDWithin.IsDistance())
	assert.True(t, qcode.OpBeyond.IsDistance())
	assert.False(t, qcode.OpIntersects.IsDistance())

	op, ok := qcode.LookupOp("st_equals")
	assert.True(t, ok)
	assert.Equal(t, qcode.OpSpatialEquals, op)
	assert.Equal(t, "ExpOp(99)", qcode.ExpOp(99).String())
}

func TestSwappedOperands(t *testing.T) {
	ex := qcode.NewSpatial(qcode.OpWithin, qcode.Literal("g"), qcode.Property("geom"))
	assert.True(t, ex.Swapped)
	assert.Equal(t, "geom", ex.Property().Name)
	assert.Equal(t, "g", ex.Other().Val)

	ex = qcode.NewSpatial(qcode.OpWithin, qcode.Property("geom"), qcode.Literal("g"))
	assert.False(t, ex.Swapped)
	assert.Equal(t, "geom", ex.Property().Name)
}

func TestLogicalFlattening(t *testing.T) {
	a := qcode.NewCompare(qcode.OpEquals, "a", 1)

	assert.Nil(t, qcode.And())
	assert.Same(t, a, qcode.And(nil, a))
	assert.Len(t, qcode.Or(a, a).Children, 2)
}

func TestWalkOrder(t *testing.T) {
	a := qcode.NewCompare(qcode.OpEquals, "a", 1)
	b := qcode.NewCompare(qcode.OpEquals, "b", 2)
	c := qcode.NewCompare(qcode.OpEquals, "c", 3)
	root := qcode.And(qcode.Or(a, b), qcode.Not(c))

	var seen []string
	root.Walk(func(ex *qcode.Exp) bool {
		if ex.Left.IsProperty() {
			seen = append(seen, ex.Left.Name)
		}
		return ex.Op != qcode.OpNot
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}
