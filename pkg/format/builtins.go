package format

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	xnumber "golang.org/x/text/number"

	"github.com/vango-dev/enhance/pkg/vdom"
)

// HTML marks a formatter result as trusted markup that is rendered
// unescaped. Callers are responsible for sanitising it.
type HTML string

type builtin struct {
	minArgs, maxArgs int
	call             func(args []any) (any, error)
}

var builtins = map[string]builtin{
	"upper": {1, 1, func(a []any) (any, error) { return strings.ToUpper(vdom.Stringify(a[0])), nil }},
	"lower": {1, 1, func(a []any) (any, error) { return strings.ToLower(vdom.Stringify(a[0])), nil }},
	"trim":  {1, 1, func(a []any) (any, error) { return strings.TrimSpace(vdom.Stringify(a[0])), nil }},
	"title": {1, 1, func(a []any) (any, error) { return Title(vdom.Stringify(a[0])), nil }},
	"string": {1, 1, func(a []any) (any, error) {
		return vdom.Stringify(a[0]), nil
	}},
	"number": {1, 1, func(a []any) (any, error) { return Number(a[0]), nil }},
	"fixed": {1, 2, func(a []any) (any, error) {
		digits := 0
		if len(a) == 2 {
			digits = int(toNumber(a[1]))
		}
		if digits < 0 || digits > 20 {
			return nil, fmt.Errorf("fixed: digits %d out of range", digits)
		}
		return strconv.FormatFloat(toNumber(a[0]), 'f', digits, 64), nil
	}},
	"json": {1, 1, func(a []any) (any, error) {
		b, err := json.Marshal(a[0])
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}},
	"len": {1, 1, func(a []any) (any, error) {
		if a[0] == nil {
			return float64(0), nil
		}
		rv := reflect.ValueOf(a[0])
		switch rv.Kind() {
		case reflect.String:
			return float64(len([]rune(rv.String()))), nil
		case reflect.Slice, reflect.Array, reflect.Map:
			return float64(rv.Len()), nil
		}
		return nil, fmt.Errorf("len: unsupported type %T", a[0])
	}},
	"html": {1, 1, func(a []any) (any, error) { return HTML(vdom.Stringify(a[0])), nil }},
}

// Title converts s to title case using English rules.
func Title(s string) string {
	// Casers keep state and must not be shared between goroutines.
	return cases.Title(language.English).String(s)
}

// Number formats v with English digit grouping ("1234567.5" -> "1,234,567.5").
// Values that are not numeric are returned as their string form.
func Number(v any) string {
	n := toNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return vdom.Stringify(v)
	}
	return message.NewPrinter(language.English).Sprint(xnumber.Decimal(n))
}

// Builtins returns the names of the functions callable from expressions.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return sortStrings(names)
}
