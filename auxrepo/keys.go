package auxrepo

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/goliatone/kvengine/cache"
)

// namespaceFor derives the cache namespace from T's type name, lowered to
// snake_case. Pointer and generic decorations are stripped so the
// namespace stays a clean prefix for invalidation.
func namespaceFor[T any]() string {
	var sample T
	typ := reflect.TypeOf(sample)
	if typ == nil {
		typ = reflect.TypeOf(&sample).Elem()
	}
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil {
		return "record"
	}

	name := typ.Name()
	if name == "" {
		name = typ.String()
		if idx := strings.LastIndex(name, "."); idx != -1 {
			name = name[idx+1:]
		}
	}
	if idx := strings.IndexByte(name, '['); idx != -1 {
		name = name[:idx]
	}
	if snake := toSnake(name); snake != "" {
		return snake
	}
	return "record"
}

// toSnake lowers an exported Go type name to snake_case, writing an
// underscore for any rune that is not a letter or digit.
func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (nextLower && prev != '_') {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func (r *Repo[T]) methodKey(method string) string {
	return r.namespace + cache.KeySeparator + method
}

func (r *Repo[T]) readKey(method string, args []any) string {
	return r.keys.SerializeKey(r.methodKey(method), args...)
}

// tablePrefix is the invalidation prefix covering every key Repo ever
// writes for this record type.
func (r *Repo[T]) tablePrefix() string {
	return r.namespace + cache.KeySeparator
}
