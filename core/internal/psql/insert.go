package psql

import (
	"bytes"
	"fmt"

	"github.com/dosco/sqlgeo/core/internal/dialect"
	"github.com/dosco/sqlgeo/core/internal/sdata"
)

// CompileInsert renders a single row insert into ft. Every column becomes
// a parameter, geometry columns take the encoded geometry.
func (co *Compiler) CompileInsert(w *bytes.Buffer, ft *sdata.FeatureType, columns []string) (Metadata, error) {
	var md Metadata

	if ft == nil {
		return md, fmt.Errorf("feature type is nil")
	}
	if len(columns) == 0 {
		for _, a := range ft.Attributes {
			columns = append(columns, a.Name)
		}
	}
	if len(columns) == 0 {
		return md, fmt.Errorf("no columns to insert into %s", ft.Table())
	}

	attrs := make([]sdata.Attribute, 0, len(columns))
	for _, col := range columns {
		a, ok := ft.Attribute(col)
		if !ok {
			return md, fmt.Errorf("column not found: %s.%s", ft.Table(), col)
		}
		attrs = append(attrs, a)
	}

	c := co.newContext(w, &md, ft)
	c.renderInsertStmt(attrs)
	return md, c.err
}

func (c *compilerContext) renderInsertStmt(attrs []sdata.Attribute) {
	c.w.WriteString(`INSERT INTO `)
	c.table(c.ft.Schema, c.ft.Name)
	c.w.WriteString(` (`)

	for i, a := range attrs {
		if i != 0 {
			c.w.WriteString(`, `)
		}
		c.quoted(a.Name)
	}
	c.w.WriteString(`) VALUES (`)

	for i, a := range attrs {
		if i != 0 {
			c.w.WriteString(`, `)
		}
		p := dialect.Param{Name: a.Name, Type: a.Type}

		if a.Geometry {
			c.dialect.RenderGeometryParam(c, p, a.SRID)
		} else {
			c.w.WriteString(c.AddParam(p))
		}
	}
	c.w.WriteString(`)`)
}
