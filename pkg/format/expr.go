package format

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/vango-dev/enhance/pkg/vdom"
)

// Expr is a compiled inline expression.
type Expr struct {
	src  string
	eval evalFunc
}

type evalFunc func(value any) (any, error)

// Compile parses src into an expression over the bound value.
func Compile(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	fn, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %s at %d", tok, tok.pos)
	}
	return &Expr{src: src, eval: fn}, nil
}

// Eval evaluates the expression with value bound.
func (e *Expr) Eval(value any) (any, error) {
	return e.eval(value)
}

// String returns the source of the expression.
func (e *Expr) String() string {
	return e.src
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) expectOp(op string) error {
	if _, ok := p.acceptOp(op); !ok {
		tok := p.peek()
		return fmt.Errorf("expected %q, got %s at %d", op, tok, tok.pos)
	}
	return nil
}

func (p *parser) ternary() (evalFunc, error) {
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOp("?"); !ok {
		return cond, nil
	}
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	otherwise, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return func(v any) (any, error) {
		c, err := cond(v)
		if err != nil {
			return nil, err
		}
		if truthy(c) {
			return then(v)
		}
		return otherwise(v)
	}, nil
}

func (p *parser) or() (evalFunc, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(v any) (any, error) {
			a, err := l(v)
			if err != nil || truthy(a) {
				return a, err
			}
			return right(v)
		}
	}
}

func (p *parser) and() (evalFunc, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			return left, nil
		}
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(v any) (any, error) {
			a, err := l(v)
			if err != nil || !truthy(a) {
				return a, err
			}
			return right(v)
		}
	}
}

func (p *parser) equality() (evalFunc, error) {
	return p.binary(p.compare, "===", "!==", "==", "!=")
}

func (p *parser) compare() (evalFunc, error) {
	return p.binary(p.additive, "<=", ">=", "<", ">")
}

func (p *parser) additive() (evalFunc, error) {
	return p.binary(p.multiplicative, "+", "-")
}

func (p *parser) multiplicative() (evalFunc, error) {
	return p.binary(p.unary, "*", "/", "%")
}

// binary parses a left-associative chain of ops over operands from next.
func (p *parser) binary(next func() (evalFunc, error), ops ...string) (evalFunc, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(v any) (any, error) {
			a, err := l(v)
			if err != nil {
				return nil, err
			}
			b, err := right(v)
			if err != nil {
				return nil, err
			}
			return applyBinary(op, a, b)
		}
	}
}

func (p *parser) unary() (evalFunc, error) {
	op, ok := p.acceptOp("!", "-")
	if !ok {
		return p.postfix()
	}
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	return func(v any) (any, error) {
		a, err := operand(v)
		if err != nil {
			return nil, err
		}
		if op == "!" {
			return !truthy(a), nil
		}
		return -toNumber(a), nil
	}, nil
}

func (p *parser) postfix() (evalFunc, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("."); !ok {
			return base, nil
		}
		tok := p.advance()
		if tok.kind != tokIdent {
			return nil, fmt.Errorf("expected member name, got %s at %d", tok, tok.pos)
		}
		b, name := base, tok.text
		base = func(v any) (any, error) {
			obj, err := b(v)
			if err != nil {
				return nil, err
			}
			return member(obj, name), nil
		}
	}
}

func (p *parser) primary() (evalFunc, error) {
	tok := p.advance()
	switch tok.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, err
		}
		return constant(n), nil
	case tokString:
		return constant(tok.text), nil
	case tokIdent:
		switch tok.text {
		case "value":
			return func(v any) (any, error) { return v, nil }, nil
		case "true":
			return constant(true), nil
		case "false":
			return constant(false), nil
		case "null", "undefined":
			return constant(nil), nil
		}
		if _, ok := p.acceptOp("("); ok {
			return p.call(tok)
		}
		return nil, fmt.Errorf("unknown identifier %q at %d", tok.text, tok.pos)
	case tokOp:
		if tok.text == "(" {
			inner, err := p.ternary()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}
	return nil, fmt.Errorf("unexpected %s at %d", tok, tok.pos)
}

func (p *parser) call(name token) (evalFunc, error) {
	fn, ok := builtins[name.text]
	if !ok {
		return nil, fmt.Errorf("unknown function %q at %d", name.text, name.pos)
	}
	var args []evalFunc
	if _, ok := p.acceptOp(")"); !ok {
		for {
			arg, err := p.ternary()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if _, ok := p.acceptOp(","); ok {
				continue
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	if len(args) < fn.minArgs || len(args) > fn.maxArgs {
		return nil, fmt.Errorf("%s takes %d to %d arguments, got %d", name.text, fn.minArgs, fn.maxArgs, len(args))
	}
	return func(v any) (any, error) {
		vals := make([]any, len(args))
		for i, a := range args {
			val, err := a(v)
			if err != nil {
				return nil, err
			}
			vals[i] = val
		}
		return fn.call(vals)
	}, nil
}

func constant(c any) evalFunc {
	return func(any) (any, error) { return c, nil }
}

func applyBinary(op string, a, b any) (any, error) {
	switch op {
	case "+":
		_, as := a.(string)
		_, bs := b.(string)
		if as || bs {
			return vdom.Stringify(a) + vdom.Stringify(b), nil
		}
		return toNumber(a) + toNumber(b), nil
	case "-":
		return toNumber(a) - toNumber(b), nil
	case "*":
		return toNumber(a) * toNumber(b), nil
	case "/":
		return toNumber(a) / toNumber(b), nil
	case "%":
		return math.Mod(toNumber(a), toNumber(b)), nil
	case "==", "===":
		return equal(a, b), nil
	case "!=", "!==":
		return !equal(a, b), nil
	case "<", "<=", ">", ">=":
		return compare(op, a, b), nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func compare(op string, a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "<":
			return as < bs
		case "<=":
			return as <= bs
		case ">":
			return as > bs
		default:
			return as >= bs
		}
	}
	x, y := toNumber(a), toNumber(b)
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	default:
		return x >= y
	}
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

// number converts numeric kinds to float64 without coercing strings.
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toNumber coerces v to a number the way a loosely typed host would:
// booleans become 0/1, numeric strings parse, anything else is NaN.
func toNumber(v any) float64 {
	if n, ok := number(v); ok {
		return n
	}
	switch val := v.(type) {
	case nil:
		return 0
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}
	return math.NaN()
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if n, ok := number(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// member reads obj.name from maps and structs; length works on strings
// and slices.
func member(obj any, name string) any {
	if obj == nil {
		return nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() {
			f = rv.FieldByName(strings.ToUpper(name[:1]) + name[1:])
		}
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	case reflect.String:
		if name == "length" {
			return float64(len([]rune(rv.String())))
		}
	case reflect.Slice, reflect.Array:
		if name == "length" {
			return float64(rv.Len())
		}
	}
	return nil
}
