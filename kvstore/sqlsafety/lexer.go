package sqlsafety

import "strings"

// stripLiteralsAndComments removes single-quoted string literals,
// double-quoted identifiers, line comments (--) and block comments (/* */)
// from a SQL fragment, replacing each with a single space so token
// boundaries and byte offsets of the surrounding SQL are preserved. It
// exists so function-call detection never mistakes text inside a string
// literal (e.g. a value containing "FOO(") for an actual function call.
func stripLiteralsAndComments(sql string) string {
	var out strings.Builder
	out.Grow(len(sql))

	runes := []rune(sql)
	i := 0
	n := len(runes)

	for i < n {
		c := runes[i]

		switch {
		case c == '\'':
			i = skipQuoted(runes, i, '\'', &out)
		case c == '"':
			i = skipQuoted(runes, i, '"', &out)
		case c == '-' && i+1 < n && runes[i+1] == '-':
			i = skipLineComment(runes, i, &out)
		case c == '/' && i+1 < n && runes[i+1] == '*':
			i = skipBlockComment(runes, i, &out)
		default:
			out.WriteRune(c)
			i++
		}
	}

	return out.String()
}

// skipQuoted consumes a quoted run starting at runes[start] (which must be
// the opening quote), honoring the SQL convention that a doubled quote
// ('' or "") is an escaped literal quote, not the end of the run. It
// writes a single space in place of the whole run and returns the index
// just past it.
func skipQuoted(runes []rune, start int, quote rune, out *strings.Builder) int {
	i := start + 1
	n := len(runes)
	for i < n {
		if runes[i] == quote {
			if i+1 < n && runes[i+1] == quote {
				i += 2
				continue
			}
			i++
			break
		}
		i++
	}
	out.WriteRune(' ')
	return i
}

func skipLineComment(runes []rune, start int, out *strings.Builder) int {
	i := start
	n := len(runes)
	for i < n && runes[i] != '\n' {
		i++
	}
	out.WriteRune(' ')
	return i
}

func skipBlockComment(runes []rune, start int, out *strings.Builder) int {
	i := start + 2
	n := len(runes)
	for i < n-1 {
		if runes[i] == '*' && runes[i+1] == '/' {
			i += 2
			out.WriteRune(' ')
			return i
		}
		i++
	}
	out.WriteRune(' ')
	return n
}

// extractFunctionCalls scans a sanitized (literal/comment-free) SQL
// fragment for `IDENTIFIER(` occurrences and returns the upper-cased
// identifier names. It is deliberately permissive about what counts as an
// identifier character so dotted/qualified names (schema.func) still
// yield the final segment.
func extractFunctionCalls(sanitized string) []string {
	var calls []string
	runes := []rune(sanitized)
	n := len(runes)

	i := 0
	for i < n {
		if !isIdentStart(runes[i]) {
			i++
			continue
		}

		start := i
		for i < n && isIdentPart(runes[i]) {
			i++
		}

		j := i
		for j < n && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
			j++
		}

		if j < n && runes[j] == '(' {
			name := string(runes[start:i])
			if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
				name = name[dot+1:]
			}
			calls = append(calls, strings.ToUpper(name))
		}
	}

	return calls
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

// dangerousPatterns are substrings that, if found in a sanitized fragment,
// indicate an attempt at statement stacking or schema tampering rather
// than a single expression — the kind of input a parameterized query
// should never need to contain.
var dangerousPatterns = []string{
	";",
	"--",
	"/*",
	"xp_",
	"sp_",
}

// findDangerousPattern returns the first dangerous pattern present in the
// *raw* (not sanitized) fragment, or "" if none is found. It intentionally
// looks at the raw text: a semicolon inside a string literal is still
// worth a warning in non-strict mode, even though it is syntactically
// inert.
func findDangerousPattern(raw string) string {
	upper := strings.ToUpper(raw)
	for _, p := range dangerousPatterns {
		if strings.Contains(upper, strings.ToUpper(p)) {
			return p
		}
	}
	return ""
}
