// Package render is the runtime support library linked by code the
// compiler generates. Where the generated source calls a builtin filter or
// needs the HTML markup-display adaptor, it calls into this package, the
// same way code askama generates calls into ::askama::filters.
package render

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Safe wraps a string whose display form is trusted not to need further
// HTML escaping. It is the target of the compiler's Wrapped classification.
type Safe string

func (s Safe) String() string { return string(s) }

// HTML escapes v (formatted with fmt.Sprint) for safe inclusion in HTML
// text and returns the result already wrapped as Safe, mirroring
// MarkupDisplay's role: the generator calls this only when an expression is
// not already Wrapped.
func HTML(v any) Safe {
	s := fmt.Sprint(v)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteRune(r)
		}
	}
	return Safe(b.String())
}

// Safe_ is the `safe` filter: marks v's string form as trusted without
// modification.
func Safe_(v any) Safe { return Safe(fmt.Sprint(v)) }

// Escape is the `escape`/`e` filter: forces HTML escaping regardless of the
// template's configured default.
func Escape(v any) Safe { return HTML(v) }

// E is an alias of Escape, matching the catalogue's short filter name.
func E(v any) Safe { return Escape(v) }

// JSON is the `json` filter. It is intentionally minimal: it supports the
// scalar and slice/map shapes a template variable realistically takes and
// marks the result Safe since JSON text needs no further HTML escaping in
// the contexts this engine targets.
func JSON(v any) Safe {
	return Safe(jsonEncode(reflect.ValueOf(v)))
}

func jsonEncode(v reflect.Value) string {
	if !v.IsValid() {
		return "null"
	}
	switch v.Kind() {
	case reflect.String:
		return strconv.Quote(v.String())
	case reflect.Bool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", v.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%g", v.Float())
	case reflect.Slice, reflect.Array:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = jsonEncode(v.Index(i))
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map:
		var parts []string
		iter := v.MapRange()
		for iter.Next() {
			parts = append(parts, strconv.Quote(fmt.Sprint(iter.Key().Interface()))+":"+jsonEncode(iter.Value()))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return "null"
		}
		return jsonEncode(v.Elem())
	default:
		return strconv.Quote(fmt.Sprint(v.Interface()))
	}
}


// Lower, Upper, Trim and Capitalize are ordinary (non-Wrapped) catalogue
// filters.
func Lower(v any) string { return strings.ToLower(fmt.Sprint(v)) }
func Upper(v any) string { return strings.ToUpper(fmt.Sprint(v)) }
func Trim(v any) string  { return strings.TrimSpace(fmt.Sprint(v)) }

func Capitalize(v any) string {
	s := fmt.Sprint(v)
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
}

// Format backs the `format` filter: fmt.Sprintf over the filter's
// arguments, the first of which is the filter's subject per spec.md's
// Filter(name,args) shape (subject is args[0]).
func Format(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// Join backs the `join` filter. Its subject is coerced through reflection
// rather than a static element type, replicating the historical
// ".into_iter()" coercion the source grammar forces on join's first
// argument (spec.md §9, open question 2): whatever slice or array is
// passed in is walked by index and its elements formatted with fmt.Sprint,
// joined by sep.
func Join(subject any, sep string) string {
	v := reflect.ValueOf(subject)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Sprint(subject)
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprint(v.Index(i).Interface())
	}
	return strings.Join(parts, sep)
}
