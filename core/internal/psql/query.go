package psql

import (
	"bytes"
	"fmt"

	"github.com/dosco/sqlgeo/core/internal/dialect"
	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/dosco/sqlgeo/core/internal/sdata"
)

type Param struct {
	Name string
	Type string
}

// Metadata describes the parameters a compiled statement expects.
type Metadata struct {
	params []Param
}

func (md Metadata) Params() []Param {
	return md.params
}

type compilerContext struct {
	md  *Metadata
	w   *bytes.Buffer
	ft  *sdata.FeatureType
	err error
	*Compiler
}

type Config struct {
	NativeSerialization bool
	ForceSpatialIndex   bool
	TableHints          string
}

type Compiler struct {
	dialect    dialect.Dialect
	native     bool
	forceIndex bool
	tableHints string
}

func NewCompiler(conf Config) *Compiler {
	return &Compiler{
		dialect:    &dialect.MSSQLDialect{NativeSerialization: conf.NativeSerialization},
		native:     conf.NativeSerialization,
		forceIndex: conf.ForceSpatialIndex,
		tableHints: conf.TableHints,
	}
}

func (co *Compiler) newContext(w *bytes.Buffer, md *Metadata, ft *sdata.FeatureType) *compilerContext {
	return &compilerContext{md: md, w: w, ft: ft, Compiler: co}
}

func (co *Compiler) CompileEx(q *qcode.Query, ft *sdata.FeatureType) (Metadata, []byte, error) {
	var w bytes.Buffer

	if md, err := co.Compile(&w, q, ft); err != nil {
		return md, nil, err
	} else {
		return md, w.Bytes(), nil
	}
}

// Compile renders the select statement for q without paging. ft may be
// nil in which case columns are selected as is and literals get SRID 0.
func (co *Compiler) Compile(w *bytes.Buffer, q *qcode.Query, ft *sdata.FeatureType) (Metadata, error) {
	var md Metadata

	if q == nil {
		return md, fmt.Errorf("query is nil")
	}
	if q.Table.Name == "" {
		return md, fmt.Errorf("query has no table")
	}

	c := co.newContext(w, &md, ft)
	c.renderSelect(q)
	return md, c.err
}

// CompileWhere renders only the boolean expression of filter.
func (co *Compiler) CompileWhere(w *bytes.Buffer, ft *sdata.FeatureType, filter *qcode.Exp) error {
	var md Metadata

	c := co.newContext(w, &md, ft)
	c.renderExp(filter)
	return c.err
}

// IndexHints returns the spatial indexes to hint for filter, none unless
// index hints are forced.
func (co *Compiler) IndexHints(ft *sdata.FeatureType, filter *qcode.Exp) []string {
	return dialect.IndexHints(filter, ft, co.forceIndex)
}

func (c *compilerContext) renderSelect(q *qcode.Query) {
	c.w.WriteString(`SELECT `)
	c.renderColumns(q)
	c.renderFrom(q)
	c.renderWhere(q)
	c.renderOrderBy(q)
}

func (c *compilerContext) renderFrom(q *qcode.Query) {
	c.w.WriteString(` FROM `)
	c.table(q.Table.Schema, q.Table.Name)
	c.dialect.RenderTableHints(c, c.IndexHints(c.ft, q.Filter), c.tableHints)
}

func (c *compilerContext) renderWhere(q *qcode.Query) {
	if q.Filter == nil {
		return
	}
	c.w.WriteString(` WHERE `)
	c.renderExp(q.Filter)
}

func (c *compilerContext) renderOrderBy(q *qcode.Query) {
	if len(q.OrderBy) == 0 {
		return
	}
	c.w.WriteString(` ORDER BY `)

	for i, ob := range q.OrderBy {
		if i != 0 {
			c.w.WriteString(`, `)
		}
		c.quoted(ob.Col)

		switch ob.Order {
		case qcode.OrderDesc:
			c.w.WriteString(` DESC`)
		default:
			c.w.WriteString(` ASC`)
		}
	}
}
