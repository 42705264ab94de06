// Package validate checks API request structs against `validate` tags.
//
// Rules are comma separated and run in order; the first failure per field
// wins.
//
//	required      not blank
//	nullable      blank values skip the remaining rules
//	min=N, max=N  rune length for strings, value for numbers
//	gt=N          number strictly above N
//	in=a b c      one of the listed words
//	token         printable ASCII without spaces (QR codes)
//
//	type scanInput struct {
//	    Code string `json:"code" validate:"nullable,max=128,token"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// field is the value under test plus the name it is reported under.
type field struct {
	name string
	v    reflect.Value
}

type rule func(f field, param string) string

var rules = map[string]rule{
	"required": func(f field, _ string) string {
		if blank(f.v) {
			return fmt.Sprintf("The %s field is required.", f.name)
		}
		return ""
	},
	"min": func(f field, p string) string {
		if n, ok := number(f.v); ok {
			if n < num(p) {
				return fmt.Sprintf("The %s must be at least %s.", f.name, p)
			}
		} else if float64(runes(f.v)) < num(p) {
			return fmt.Sprintf("The %s must be at least %s characters.", f.name, p)
		}
		return ""
	},
	"max": func(f field, p string) string {
		if n, ok := number(f.v); ok {
			if n > num(p) {
				return fmt.Sprintf("The %s must not be greater than %s.", f.name, p)
			}
		} else if float64(runes(f.v)) > num(p) {
			return fmt.Sprintf("The %s must not exceed %s characters.", f.name, p)
		}
		return ""
	},
	"gt": func(f field, p string) string {
		if n, _ := number(f.v); n <= num(p) {
			return fmt.Sprintf("The %s must be greater than %s.", f.name, p)
		}
		return ""
	},
	"in": func(f field, p string) string {
		if !slices.Contains(strings.Fields(p), fmt.Sprint(f.v.Interface())) {
			return fmt.Sprintf("The selected %s is invalid.", f.name)
		}
		return ""
	},
	"token": func(f field, _ string) string {
		for _, c := range fmt.Sprint(f.v.Interface()) {
			if c <= ' ' || c > '~' {
				return fmt.Sprintf("The %s format is invalid.", f.name)
			}
		}
		return ""
	},
}

// Struct validates the tagged exported fields of v (a struct or pointer to
// one) and returns field name → message. Names come from the json tag.
func Struct(v any) map[string]string {
	errs := make(map[string]string)
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return errs
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}
		if msg := check(field{name: jsonName(sf), v: rv.Field(i)}, strings.Split(tag, ",")); msg != "" {
			errs[jsonName(sf)] = msg
		}
	}
	return errs
}

func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func check(f field, list []string) string {
	for _, r := range list {
		name, param, _ := strings.Cut(strings.TrimSpace(r), "=")
		switch name {
		case "":
			continue
		case "nullable":
			if blank(f.v) {
				return ""
			}
			continue
		}
		fn, ok := rules[name]
		if !ok {
			return fmt.Sprintf("The %s has an unknown rule %q.", f.name, name)
		}
		if msg := fn(f, param); msg != "" {
			return msg
		}
	}
	return ""
}

func blank(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	}
	if n, ok := number(v); ok {
		return n == 0
	}
	return false
}

func number(v reflect.Value) (float64, bool) {
	switch {
	case v.CanInt():
		return float64(v.Int()), true
	case v.CanUint():
		return float64(v.Uint()), true
	case v.CanFloat():
		return v.Float(), true
	}
	return 0, false
}

func runes(v reflect.Value) int { return len([]rune(fmt.Sprint(v.Interface()))) }

func num(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(sf.Name)
	}
	return name
}
