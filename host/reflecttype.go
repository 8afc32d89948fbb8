package host

import (
	"fmt"
	"reflect"
)

// DescribeType builds a TypeDescriptor from a live Go struct value via
// reflection, for callers that already have a Go type in hand and would
// rather not hand-author a YAML field table. templatePath is recorded
// verbatim and drives the escaping-mode default.
func DescribeType(v any, templatePath string) (*TypeDescriptor, error) {
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("host type must be a struct, got %T", v)
	}
	fields := make(map[string]string, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		// Unexported fields (including the "_parent" field inheritance
		// relies on) are kept: only their name and static type are needed
		// here, and reflect.StructField exposes both without a value read.
		fields[f.Name] = f.Type.String()
	}
	return &TypeDescriptor{
		Ident:    rt.Name(),
		Fields:   fields,
		Escaping: EscapeModeForPath(templatePath),
		Path:     templatePath,
	}, nil
}
