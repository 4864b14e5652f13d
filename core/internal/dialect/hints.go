package dialect

import (
	"strings"

	"github.com/dosco/sqlgeo/core/internal/qcode"
	"github.com/dosco/sqlgeo/core/internal/sdata"
)

// IndexHints returns the spatial index to force for filter. An index is
// only hinted when a single geometry property is used by exactly one
// spatial predicate and a single column index covers that property.
// STDisjoint cannot use a spatial index and is not counted.
func IndexHints(filter *qcode.Exp, ft *sdata.FeatureType, enabled bool) []string {
	if !enabled || filter == nil || ft == nil {
		return nil
	}

	counts := make(map[string]int)
	names := make(map[string]string)

	filter.Walk(func(ex *qcode.Exp) bool {
		if !ex.Op.IsSpatial() || ex.Op == qcode.OpDisjoint {
			return true
		}
		for _, e := range [...]qcode.Expression{ex.Left, ex.Right} {
			if e.IsProperty() {
				k := strings.ToLower(e.Name)
				counts[k]++
				names[k] = e.Name
			}
		}
		return true
	})

	var prop string
	for k, n := range counts {
		if n != 1 {
			continue
		}
		if prop != "" {
			return nil
		}
		prop = k
	}
	if prop == "" {
		return nil
	}

	if idx, ok := ft.IndexFor(names[prop]); ok {
		return []string{idx.Name}
	}
	return nil
}

// TableHintClause renders the WITH clause following a table name.
func TableHintClause(indexes []string, tableHints string) string {
	tableHints = strings.TrimSpace(tableHints)
	if len(indexes) == 0 && tableHints == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(` WITH(`)

	for i, name := range indexes {
		if i != 0 {
			sb.WriteString(`, `)
		}
		sb.WriteString(`INDEX("`)
		sb.WriteString(strings.ReplaceAll(name, `"`, `""`))
		sb.WriteString(`")`)
	}
	if tableHints != "" {
		if len(indexes) != 0 {
			sb.WriteString(`, `)
		}
		sb.WriteString(tableHints)
	}
	sb.WriteString(`)`)
	return sb.String()
}
