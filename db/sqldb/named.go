package sqldb

import (
	"fmt"
	"strings"
)

// NamedQuery is a statement written with `:name` placeholders,
// rewritten into the positional syntax of one driver.
type NamedQuery struct {
	Raw   string   // as written by the caller
	SQL   string   // with driver placeholders
	Names []string // distinct placeholder names in order of first appearance

	argNames []string // name for each positional arg
}

// ParseNamed rewrites `:name` placeholders of query for dbType.
// Quoted strings, quoted identifiers, comments and `::` casts are left untouched.
func ParseNamed(query string, dbType string) (*NamedQuery, error) {
	prefix, ok := PlaceholderPrefixForDBType[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	// MySQL treats backslash as an escape inside string literals by default
	backslashEscapes := dbType == "mysql"
	pgsql := dbType == "pgsql"
	placeholder := PlaceholderGF(prefix)

	nq := &NamedQuery{Raw: query}
	ordinals := map[string]int{}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := len(query)
	i := 0
	for i < n {
		c := query[i]
		switch {
		case pgsql && (c == 'E' || c == 'e') && i+1 < n && query[i+1] == '\'' && !afterName(query, i):
			// E'...' escape string
			end := skipQuoted(query, i+1, '\'', true)
			b.WriteString(query[i:end])
			i = end
		case pgsql && c == '$' && !afterName(query, i):
			end, ok := skipDollarQuoted(query, i)
			if !ok {
				b.WriteByte(c)
				i++
				continue
			}
			b.WriteString(query[i:end])
			i = end
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(query, i, c, backslashEscapes && c != '`')
			b.WriteString(query[i:end])
			i = end
		case c == '-' && i+1 < n && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end == -1 {
				end = n
			} else {
				end += i + 1
			}
			b.WriteString(query[i:end])
			i = end
		case c == '/' && i+1 < n && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end == -1 {
				end = n
			} else {
				end += i + 4
			}
			b.WriteString(query[i:end])
			i = end
		case c == ':' && i+1 < n && query[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == ':' && i+1 < n && isNameStart(query[i+1]):
			j := i + 1
			for j < n && isNamePart(query[j]) {
				j++
			}
			name := query[i+1 : j]
			ord, seen := ordinals[name]
			if !seen {
				nq.Names = append(nq.Names, name)
				ord = len(nq.Names)
				ordinals[name] = ord
			}
			if anonymous(prefix) {
				nq.argNames = append(nq.argNames, name)
				b.WriteString(placeholder())
			} else {
				if !seen {
					nq.argNames = append(nq.argNames, name)
				}
				b.WriteString(placeholder(ord))
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	nq.SQL = b.String()
	return nq, nil
}

// skipQuoted returns the index just past the literal opened at query[start].
// A doubled quote char stays inside the literal.
func skipQuoted(query string, start int, quote byte, backslashEscapes bool) int {
	n := len(query)
	i := start + 1
	for i < n {
		c := query[i]
		if backslashEscapes && c == '\\' {
			i += 2
			continue
		}
		if c == quote {
			if i+1 < n && query[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return n // unterminated: leave the rest to the server
}

// skipDollarQuoted returns the index just past the $tag$...$tag$ body opened at query[start].
// ok is false when query[start] does not open one, e.g. a positional $1.
func skipDollarQuoted(query string, start int) (end int, ok bool) {
	n := len(query)
	j := start + 1
	if j < n && !isNameStart(query[j]) && query[j] != '$' {
		return 0, false
	}
	for j < n && isNamePart(query[j]) {
		j++
	}
	if j >= n || query[j] != '$' {
		return 0, false
	}
	tag := query[start : j+1]
	idx := strings.Index(query[j+1:], tag)
	if idx == -1 {
		return n, true // unterminated: leave the rest to the server
	}
	return j + 1 + idx + len(tag), true
}

// afterName reports whether query[i] continues an identifier, e.g. the $ of foo$bar
func afterName(query string, i int) bool {
	return i > 0 && isNamePart(query[i-1])
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// Has reports whether the statement declares the placeholder
func (q *NamedQuery) Has(name string) bool {
	name = ParamName(name)
	for _, n := range q.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Args builds the positional driver args from the bound params
func (q *NamedQuery) Args(params map[string]Param) ([]any, error) {
	args := make([]any, len(q.argNames))
	for i, name := range q.argNames {
		p, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("%w: :%s", ErrUnboundParam, name)
		}
		args[i] = p.Value
	}
	return args, nil
}

// ArgCount is the number of positional args the driver expects
func (q *NamedQuery) ArgCount() int {
	return len(q.argNames)
}
