package engine

import "strings"

// kwPrefix marks a keyword that preprocessSource turned into a string.
const kwPrefix = "__kw_"

// preprocessSource rewrites kerf source into something zygomys reads:
//
//   - :name becomes the string "__kw_name", so keywords never collide with
//     user variables;
//   - a hyphen between an identifier character and a letter becomes an
//     underscore, since zygomys parses it as subtraction;
//   - ; comments become // comments.
//
// String literals, double-quoted or backtick, pass through untouched, and
// so does the := operator.
func preprocessSource(src string) string {
	var out strings.Builder
	out.Grow(len(src) + len(src)/4)

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(src, i)
			out.WriteString(src[i:j])
			i = j

		case c == ';':
			j := i
			for j < len(src) && src[j] == ';' {
				j++
			}
			end := strings.IndexByte(src[j:], '\n')
			if end < 0 {
				end = len(src) - j
			}
			out.WriteString("//")
			out.WriteString(src[j : j+end])
			i = j + end

		case c == ':' && i+1 < len(src) && src[i+1] == '=':
			out.WriteString(":=")
			i += 2

		case c == ':' && i+1 < len(src) && isLetter(src[i+1]):
			j := i + 1
			for j < len(src) && isKWChar(src[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix + src[i+1:j] + `"`)
			i = j

		case c == '-' && i > 0 && i+1 < len(src) && isIdentChar(src[i-1]) && isLetter(src[i+1]):
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipString returns the index just past the string literal opening at i.
// Backslash escapes apply only inside double quotes. An unterminated
// literal runs to the end of src.
func skipString(src string, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			if quote == '"' {
				j++
			}
		case quote:
			return j + 1
		}
	}
	return len(src)
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool { return isLetter(c) || isDigit(c) || c == '_' }
func isKWChar(c byte) bool    { return isIdentChar(c) || c == '-' }
