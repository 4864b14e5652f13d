package psql

import (
	"fmt"

	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/dosco/sqlgeo/core/internal/sdata"
)

func (c *compilerContext) renderColumns(q *qcode.Query) {
	cols := q.Columns

	if len(cols) == 0 && c.ft != nil {
		for _, a := range c.ft.Attributes {
			cols = append(cols, a.Name)
		}
	}

	if len(cols) == 0 {
		c.w.WriteString(`*`)
		return
	}

	for i, col := range cols {
		if i != 0 {
			c.w.WriteString(`, `)
		}
		c.renderColumn(col)
	}
}

func (c *compilerContext) renderColumn(col string) {
	if c.ft == nil {
		c.quoted(col)
		return
	}

	a, ok := c.ft.Attribute(col)
	if !ok {
		c.setErr(fmt.Errorf("column not found: %s.%s", c.ft.Table(), col))
		return
	}
	if !a.Geometry {
		c.quoted(a.Name)
		return
	}
	c.renderGeometryColumn(a)
}

// geometry columns are selected in the binary form the codec reads,
// under their own name
func (c *compilerContext) renderGeometryColumn(a sdata.Attribute) {
	c.dialect.RenderGeometryColumn(c, a.Name, a.Dimension)
	if !c.native {
		c.w.WriteString(` AS `)
		c.quoted(a.Name)
	}
}
