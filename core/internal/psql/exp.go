package psql

import (
	"fmt"

	"github.com/dosco/sqlgeo/core/internal/dialect"
	"github.com/dosco/sqlgeo/core/internal/qcode"
)

type expContext struct {
	*compilerContext
}

func (c *compilerContext) renderExp(ex *qcode.Exp) {
	ec := expContext{compilerContext: c}
	ec.render(ex)
}

func (c *expContext) render(ex *qcode.Exp) {
	var st stack
	st.Push(ex)

	for st.Len() != 0 && c.err == nil {
		intf := st.Pop()

		switch val := intf.(type) {
		case int32:
			switch val {
			case '(':
				c.w.WriteString(`(`)
			case ')':
				c.w.WriteString(`)`)
			}

		case qcode.ExpOp:
			switch val {
			case qcode.OpAnd:
				c.w.WriteString(` AND `)
			case qcode.OpOr:
				c.w.WriteString(` OR `)
			case qcode.OpNot:
				c.w.WriteString(`NOT `)
			}

		case *qcode.Exp:
			if val == nil {
				c.setErr(fmt.Errorf("%w: nil filter node", dialect.ErrUnsupportedOperator))
				return
			}
			switch val.Op {
			case qcode.OpAnd, qcode.OpOr:
				if len(val.Children) == 0 {
					c.setErr(fmt.Errorf("%w: %v with no operands", dialect.ErrUnsupportedOperator, val.Op))
					return
				}
				st.Push(')')
				for i := len(val.Children) - 1; i >= 0; i-- {
					st.Push(val.Children[i])
					if i > 0 {
						st.Push(val.Op)
					}
				}
				st.Push('(')

			case qcode.OpNot:
				if len(val.Children) != 1 {
					c.setErr(fmt.Errorf("%w: %v needs one operand, got %d",
						dialect.ErrUnsupportedOperator, val.Op, len(val.Children)))
					return
				}
				st.Push(')')
				st.Push(val.Children[0])
				st.Push('(')
				st.Push(qcode.OpNot)

			default:
				c.renderOp(val)
			}
		}
	}
}

func (c *expContext) renderOp(ex *qcode.Exp) {
	if ex.Op == qcode.OpNop {
		return
	}

	if ex.Op.IsSpatial() {
		c.setErr(c.dialect.RenderSpatialOp(c, c.ft, ex))
		return
	}

	op, err := c.dialect.RenderOp(ex.Op)
	if err != nil {
		c.setErr(err)
		return
	}

	c.renderOperand(ex.Left, ex.Right)
	c.w.WriteString(` `)
	c.w.WriteString(op)

	if ex.Op == qcode.OpIsNull || ex.Op == qcode.OpIsNotNull {
		return
	}
	c.w.WriteString(` `)
	c.renderOperand(ex.Right, ex.Left)
}

// renderOperand renders e, a literal is typed by the column on the
// other side
func (c *expContext) renderOperand(e, other qcode.Expression) {
	if e.IsProperty() {
		c.quoted(e.Name)
		return
	}
	c.setErr(c.dialect.RenderLiteral(c, c.ft, other.Name, e.Val))
}
