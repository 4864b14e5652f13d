package qcode

import (
	"strings"
)

type Order int8

const (
	OrderAsc Order = iota + 1
	OrderDesc
)

type OrderBy struct {
	Col   string
	Order Order
}

// Paging is the requested row window. Limit applies only when Limited
// is set, Offset rows are skipped first.
type Paging struct {
	Limit   int32
	Offset  int32
	Limited bool
}

func (p Paging) IsZero() bool {
	return !p.Limited && p.Offset == 0
}

type Table struct {
	Schema string
	Name   string
}

// ParseTable splits "schema.table", the schema is optional.
func ParseTable(s string) Table {
	if i := strings.LastIndexByte(s, '.'); i != -1 {
		return Table{Schema: s[:i], Name: s[i+1:]}
	}
	return Table{Name: s}
}

func (t Table) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Query is what the data-access framework asks for, a projection of a
// feature table narrowed by a filter.
type Query struct {
	Table   Table
	Columns []string
	Filter  *Exp
	OrderBy []OrderBy
	Paging  Paging
}
