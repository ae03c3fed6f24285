package format

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/enhance/internal/errors"
)

// ExprPrefix marks an inline expression in a format attribute.
const ExprPrefix = "js:"

// Func transforms a bound value for display.
type Func func(value any) (any, error)

// Registry holds named formatters and plain functions.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Func
	funcs      map[string]func(any) any
	exprs      map[string]*Expr
}

// NewRegistry returns a registry preloaded with the built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[string]Func),
		funcs:      make(map[string]func(any) any),
		exprs:      make(map[string]*Expr),
	}
	for _, name := range Builtins() {
		b := builtins[name]
		if b.minArgs != 1 {
			continue
		}
		r.formatters[name] = func(v any) (any, error) { return b.call([]any{v}) }
	}
	return r
}

// Register adds a named formatter, replacing any previous one.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[name] = fn
}

// RegisterFunc adds a plain function reachable by name.
func (r *Registry) RegisterFunc(name string, fn func(any) any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Names returns every registered formatter and function name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formatters)+len(r.funcs))
	for name := range r.formatters {
		names = append(names, name)
	}
	for name := range r.funcs {
		if _, dup := r.formatters[name]; !dup {
			names = append(names, name)
		}
	}
	return sortStrings(names)
}

// Resolve maps a format attribute value to a Func. An empty spec resolves
// to nil, meaning the raw value is shown.
func (r *Registry) Resolve(spec string) (Func, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	r.mu.RLock()
	fn, ok := r.formatters[spec]
	plain, plainOK := r.funcs[spec]
	expr, exprOK := r.exprs[spec]
	r.mu.RUnlock()

	switch {
	case ok:
		return fn, nil
	case plainOK:
		return func(v any) (any, error) { return plain(v), nil }, nil
	case exprOK:
		return expr.Eval, nil
	}

	if !strings.HasPrefix(spec, ExprPrefix) {
		return nil, errors.New("E002").WithDetail(spec)
	}
	expr, err := Compile(strings.TrimPrefix(spec, ExprPrefix))
	if err != nil {
		return nil, errors.New("E004").WithDetail(spec).Wrap(err)
	}
	r.mu.Lock()
	r.exprs[spec] = expr
	r.mu.Unlock()
	return expr.Eval, nil
}

// Apply runs fn on value. A nil fn returns value unchanged; a failing fn
// returns value together with an E003 error so callers can fall back.
func Apply(fn Func, value any) (any, error) {
	if fn == nil {
		return value, nil
	}
	out, err := safeCall(fn, value)
	if err != nil {
		return value, errors.New("E003").Wrap(err)
	}
	return out, nil
}

func safeCall(fn Func, value any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatter panic: %v", r)
		}
	}()
	return fn(value)
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
