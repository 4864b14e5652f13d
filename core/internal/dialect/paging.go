package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dosco/sqlgeo/core/internal/qcode"
)

// RowNumberAlias is the column holding the row number in a statement
// paged with an offset.
const RowNumberAlias = "_row_number"

const (
	pagedAlias = "_paged"

	// a window function needs an ordering even when none was asked for
	defaultOrderBy = "ORDER BY CURRENT_TIMESTAMP"
)

// Paginate rewrites a complete SELECT statement to skip p.Offset rows and
// return at most p.Limit rows. Without an offset a top clause is enough,
// otherwise the rows are numbered and filtered in an outer select.
func Paginate(stmt string, p qcode.Paging) (string, error) {
	if p.IsZero() {
		return stmt, nil
	}
	if p.Offset == 0 {
		return renderTop(stmt, p.Limit)
	}

	s := scanStatement(stmt)
	if !s.selectFound || s.from == -1 {
		return "", fmt.Errorf("%w: no top-level SELECT ... FROM in %q", ErrMalformedStatement, stmt)
	}

	orderBy := defaultOrderBy
	if s.orderBy != -1 {
		orderBy = strings.TrimSpace(stmt[s.orderBy:])
		stmt = strings.TrimRight(stmt[:s.orderBy], " \t\r\n")
	}

	var sb strings.Builder
	sb.Grow(len(stmt) + 128)

	sb.WriteString(`SELECT * FROM (`)
	sb.WriteString(stmt[:s.from])
	sb.WriteString(`, ROW_NUMBER() OVER (`)
	sb.WriteString(orderBy)
	sb.WriteString(`) AS `)
	sb.WriteString(RowNumberAlias)
	sb.WriteString(stmt[s.from:])
	sb.WriteString(`) AS `)
	sb.WriteString(pagedAlias)
	sb.WriteString(` WHERE `)
	sb.WriteString(RowNumberAlias)
	sb.WriteString(` > `)
	sb.WriteString(strconv.FormatInt(int64(p.Offset), 10))

	if p.Limited {
		sb.WriteString(` AND `)
		sb.WriteString(RowNumberAlias)
		sb.WriteString(` <= `)
		sb.WriteString(strconv.FormatInt(int64(p.Offset)+int64(p.Limit), 10))
	}
	return sb.String(), nil
}

func renderTop(stmt string, limit int32) (string, error) {
	i := selectPrefix(stmt)
	if i == -1 {
		return "", fmt.Errorf("%w: no SELECT in %q", ErrMalformedStatement, stmt)
	}
	return stmt[:i] + "top " + strconv.FormatInt(int64(limit), 10) + " " + stmt[i:], nil
}

// selectPrefix returns the offset just past a leading "SELECT " or
// "SELECT DISTINCT ", or -1.
func selectPrefix(stmt string) int {
	i := len(stmt) - len(strings.TrimLeft(stmt, " \t\r\n"))

	if !hasPrefixFold(stmt[i:], "SELECT ") {
		return -1
	}
	i += len("SELECT ")

	if hasPrefixFold(stmt[i:], "DISTINCT ") {
		i += len("DISTINCT ")
	}
	return i
}

type stmtInfo struct {
	selectFound bool

	// offsets of the top-level clauses, -1 when absent. from points at
	// the whitespace in front of FROM
	from    int
	orderBy int
}

// scanStatement finds the clauses of the outermost select. Text inside
// parentheses, string literals and quoted identifiers is skipped, so the
// clauses of a sub-select are never matched.
func scanStatement(stmt string) stmtInfo {
	s := stmtInfo{
		selectFound: selectPrefix(stmt) != -1,
		from:        -1,
		orderBy:     -1,
	}
	depth := 0

	for i := 0; i < len(stmt); i++ {
		switch c := stmt[i]; c {
		case '\'', '"':
			i = skipQuoted(stmt, i, c)
			continue
		case '[':
			i = skipQuoted(stmt, i, ']')
			continue
		case '(':
			depth++
			continue
		case ')':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth != 0 || !isSpace(stmt[i]) {
			continue
		}

		rest := stmt[i+1:]

		switch {
		case s.from == -1 && hasPrefixFold(rest, "FROM") &&
			len(rest) > 4 && isSpace(rest[4]):
			s.from = i

		case hasPrefixFold(rest, "ORDER") && len(rest) > 5 && isSpace(rest[5]):
			if j := skipSpace(rest, 5); hasPrefixFold(rest[j:], "BY") &&
				(len(rest) == j+2 || isSpace(rest[j+2])) {
				s.orderBy = i + 1
			}
		}
	}
	return s
}

// skipQuoted returns the offset of the quote closing the one at i. A
// doubled quote is an escaped quote.
func skipQuoted(stmt string, i int, end byte) int {
	for j := i + 1; j < len(stmt); j++ {
		if stmt[j] != end {
			continue
		}
		if j+1 < len(stmt) && stmt[j+1] == end {
			j++
			continue
		}
		return j
	}
	return len(stmt)
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
