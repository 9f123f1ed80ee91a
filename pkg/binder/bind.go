package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// bindToStruct copies string values into the fields of *v, matching field
// names through tagName. bindErr is the sentinel the caller wants binding
// failures wrapped with.
func bindToStruct(v any, tagName string, values map[string][]string, bindErr error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}

	rt := rv.Type()
	for i := range rv.NumField() {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}

		name, ok := fieldName(rt.Field(i), tagName)
		if !ok {
			continue
		}
		vals := values[name]
		if len(vals) == 0 {
			continue
		}

		if err := setValue(field, vals); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, rt.Field(i).Name, err)
		}
	}
	return nil
}

// fieldName resolves the parameter name for a field. A missing tag falls
// back to the lowercased field name; "-" excludes the field; options after
// a comma ("name,omitempty") are ignored.
func fieldName(field reflect.StructField, tagName string) (string, bool) {
	tag := field.Tag.Get(tagName)
	switch tag {
	case "":
		return strings.ToLower(field.Name), true
	case "-":
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	return name, true
}

func setValue(field reflect.Value, vals []string) error {
	t := field.Type()

	switch t.Kind() {
	case reflect.Ptr:
		if field.IsNil() {
			field.Set(reflect.New(t.Elem()))
		}
		return setValue(field.Elem(), vals)
	case reflect.Slice:
		return setSlice(field, vals)
	}

	return setScalar(field, vals[0])
}

func setScalar(field reflect.Value, val string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(val, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", val)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(val, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", val)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(val, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", val)
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}

// parseBool accepts strconv forms plus the html-form spellings.
func parseBool(val string) (bool, error) {
	if b, err := strconv.ParseBool(val); err == nil {
		return b, nil
	}
	switch strings.ToLower(val) {
	case "on", "yes", "1":
		return true, nil
	case "off", "no", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool value %q", val)
}

// setSlice binds repeated parameters to a slice; individual values may also
// be comma-separated lists.
func setSlice(field reflect.Value, vals []string) error {
	var flat []string
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			flat = append(flat, strings.TrimSpace(part))
		}
	}

	out := reflect.MakeSlice(field.Type(), len(flat), len(flat))
	for i, v := range flat {
		if err := setValue(out.Index(i), []string{v}); err != nil {
			return err
		}
	}
	field.Set(out)
	return nil
}
