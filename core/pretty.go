package core

import (
	"strings"
)

// clauses that start on a new line, two word ones are matched first
var clauseKeywords = map[string]bool{
	"SELECT":     true,
	"FROM":       true,
	"WHERE":      true,
	"AND":        true,
	"OR":         true,
	"ORDER BY":   true,
	"GROUP BY":   true,
	"HAVING":     true,
	"UNION":      true,
	"VALUES":     true,
	"INSERT":     true,
	"JOIN":       true,
	"LEFT JOIN":  true,
	"CROSS JOIN": true,
	"INNER JOIN": true,
}

// Prettify breaks a compiled statement into one clause per line for
// display. String literals and quoted identifiers are left untouched.
func Prettify(sql string) string {
	var sb strings.Builder
	sb.Grow(len(sql) + 64)

	lastSpace := true
	n := len(sql)

	for i := 0; i < n; i++ {
		c := sql[i]

		switch c {
		case '\'', '"', '[':
			end := c
			if c == '[' {
				end = ']'
			}
			j := quotedEnd(sql, i, end)
			sb.WriteString(sql[i:j])
			i = j - 1
			lastSpace = false
			continue

		case ' ', '\t', '\r', '\n':
			if !lastSpace {
				sb.WriteByte(' ')
			}
			lastSpace = true
			continue
		}

		if !isWordStart(c) || (i > 0 && isWordChar(sql[i-1])) {
			sb.WriteByte(c)
			lastSpace = false
			continue
		}

		j := wordEnd(sql, i)
		word := strings.ToUpper(sql[i:j])

		// two word clauses like ORDER BY
		if j < n && sql[j] == ' ' {
			k := j + 1
			if l := wordEnd(sql, k); l > k && clauseKeywords[word+" "+strings.ToUpper(sql[k:l])] {
				newClause(&sb, word+" "+strings.ToUpper(sql[k:l]))
				i, lastSpace = l-1, false
				continue
			}
		}

		if clauseKeywords[word] {
			newClause(&sb, word)
		} else {
			sb.WriteString(sql[i:j])
		}
		i, lastSpace = j-1, false
	}

	return strings.TrimSpace(sb.String())
}

func newClause(sb *strings.Builder, kw string) {
	s := strings.TrimRight(sb.String(), " ")
	sb.Reset()
	sb.WriteString(s)
	if s != "" {
		sb.WriteByte('\n')
	}
	sb.WriteString(kw)
}

// quotedEnd returns the offset past the quote closing the one at i
func quotedEnd(s string, i int, end byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != end {
			continue
		}
		if j+1 < len(s) && s[j+1] == end {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func wordEnd(s string, i int) int {
	for i < len(s) && isWordChar(s[i]) {
		i++
	}
	return i
}

func isWordStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9') || c == '@' || c == '#' || c == '$'
}
