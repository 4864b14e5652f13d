package psql

import (
	"github.com/dosco/sqlgeo/core/internal/dialect"
)

func (c *compilerContext) table(schema, table string) {
	if schema != "" {
		c.quoted(schema)
		c.w.WriteString(`.`)
	}
	c.quoted(table)
}

func (c *compilerContext) quoted(identifier string) {
	c.w.WriteString(c.dialect.QuoteIdentifier(identifier))
}

// setErr keeps the first error, rendering stops once it is set
func (c *compilerContext) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *compilerContext) Write(s string) (int, error) {
	return c.w.WriteString(s)
}

func (c *compilerContext) WriteString(s string) (int, error) {
	return c.w.WriteString(s)
}

func (c *compilerContext) AddParam(p dialect.Param) string {
	c.md.params = append(c.md.params, Param{Name: p.Name, Type: p.Type})
	return c.dialect.BindVar(len(c.md.params))
}

func (c *compilerContext) Quote(s string) {
	c.quoted(s)
}

type stack struct {
	items []interface{}
}

func (s *stack) Push(v interface{}) {
	s.items = append(s.items, v)
}

func (s *stack) Pop() interface{} {
	n := len(s.items) - 1
	v := s.items[n]
	s.items = s.items[:n]
	return v
}

func (s *stack) Len() int {
	return len(s.items)
}
