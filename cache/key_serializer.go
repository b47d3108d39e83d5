package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
)

// KeySeparator delimits the segments of a cache key. Prefix-based
// invalidation in auxrepo depends on it, so it must never appear inside a
// serialized segment's framing.
const KeySeparator = "::"

// maxKeyLen bounds the rendered key. Keys that exceed it keep their
// method prefix (so prefix invalidation still matches) and collapse the
// argument segments into an xxhash digest.
const maxKeyLen = 256

// stableKeySerializer renders arguments deterministically: maps are walked
// in sorted key order, structs by declared field order, and anything
// without a stable textual form (funcs, channels) falls back to its
// address, which is stable for the life of the process.
type stableKeySerializer struct{}

// NewDefaultKeySerializer returns the serializer used when callers do not
// supply their own.
func NewDefaultKeySerializer() KeySerializer {
	return &stableKeySerializer{}
}

func (s *stableKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	segments := make([]string, 0, len(args)+1)
	segments = append(segments, method)
	for _, arg := range args {
		segments = append(segments, s.encode(arg))
	}

	key := strings.Join(segments, KeySeparator)
	if len(key) <= maxKeyLen {
		return key
	}
	digest := xxhash.Sum64String(key)
	return method + KeySeparator + "#" + strconv.FormatUint(digest, 16)
}

func (s *stableKeySerializer) encode(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			return "nil"
		}
	}

	// Types that know their own textual form (time.Time, uuid.UUID)
	// encode through it; their fields are often unexported and would
	// otherwise all collapse to an empty struct literal.
	if str, ok := v.(fmt.Stringer); ok {
		return str.String()
	}

	switch rv.Kind() {
	case reflect.Func:
		return fmt.Sprintf("fn@%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan@%p", v)
	case reflect.Pointer, reflect.Interface:
		return s.encode(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return s.encodeList(rv)
	case reflect.Map:
		return s.encodeMap(rv)
	case reflect.Struct:
		return s.encodeStruct(rv)
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "opaque:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}

func (s *stableKeySerializer) encodeList(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.encode(rv.Index(i).Interface())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *stableKeySerializer) encodeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.encode(iter.Key().Interface())+"="+s.encode(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func (s *stableKeySerializer) encodeStruct(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+s.encode(rv.Field(i).Interface()))
	}
	return rt.Name() + "{" + strings.Join(parts, ",") + "}"
}
