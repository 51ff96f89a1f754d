// Package bundle resolves, validates and renders the message operations of
// a bundle for a locale.
//
// An OperationSet declares the operations; a Cache builds one immutable Bundle
// per (OperationSet, Locale) from a store.Store, at most once even under
// concurrent access:
//
//	set := bundle.MustOperationSet("messages",
//		bundle.Op("greeting", bundle.Object),
//		bundle.Op("files", bundle.Int),
//	)
//	b, err := bundle.Load(ctx, set, locale.MustParse("fr_FR"), bundle.DefaultConfiguration())
//	if err != nil {
//		return err
//	}
//	msg, err := b.Render("files", 3)
package bundle

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/locale"
	"github.com/c3p0-box/translations/pattern"
	"github.com/c3p0-box/translations/store"
)

// RenderFunc renders one operation with its arguments.
type RenderFunc func(args ...interface{}) (string, error)

type operation struct {
	spec     OperationSpec
	template string
	pattern  *pattern.Pattern
}

// Bundle is the dispatch table of an OperationSet for one locale. It is
// immutable and safe for concurrent use.
type Bundle struct {
	set    *OperationSet
	locale locale.Locale
	tag    language.Tag
	ops    []*operation
	bySig  map[string]*operation
	byName map[string][]*operation
}

// build validates templates against set under cfg and binds every operation.
// The first failing operation in declaration order aborts the build; extra
// keys are checked once every operation passed.
func build(set *OperationSet, loc locale.Locale, templates store.Templates, cfg Configuration) (*Bundle, error) {
	if set == nil {
		return nil, erm.Invalid("operation set must not be nil", nil)
	}
	if templates == nil {
		templates = store.Templates{}
	}

	b := &Bundle{
		set:    set,
		locale: loc,
		tag:    loc.Tag(),
		ops:    make([]*operation, 0, set.Len()),
		bySig:  make(map[string]*operation, set.Len()),
		byName: make(map[string][]*operation, set.Len()),
	}

	p := newPolicy(cfg, loc, templates)
	for _, spec := range set.specs {
		tmpl, parsed, err := p.prepare(spec)
		if err != nil {
			return nil, err
		}
		op := &operation{spec: spec, template: tmpl, pattern: parsed}
		b.ops = append(b.ops, op)
		b.bySig[spec.Signature()] = op
		b.byName[spec.Name] = append(b.byName[spec.Name], op)
	}
	if err := p.checkExtra(set.BundleID()); err != nil {
		return nil, err
	}
	return b, nil
}

// Locale returns the locale the bundle was resolved for.
func (b *Bundle) Locale() locale.Locale {
	return b.locale
}

// Set returns the operation set the bundle implements.
func (b *Bundle) Set() *OperationSet {
	return b.set
}

// Len returns the number of dispatch entries, one per operation signature.
func (b *Bundle) Len() int {
	return len(b.ops)
}

// Template returns the effective template bound to the operation name with
// the given arity.
func (b *Bundle) Template(name string, arity int) (string, bool) {
	for _, op := range b.byName[name] {
		if op.spec.Arity() == arity {
			return op.template, true
		}
	}
	return "", false
}

// Lookup returns the render function of an operation signature as returned
// by OperationSpec.Signature.
func (b *Bundle) Lookup(signature string) (RenderFunc, bool) {
	op, ok := b.bySig[signature]
	if !ok {
		return nil, false
	}
	return func(args ...interface{}) (string, error) {
		return b.render(op, args)
	}, true
}

// Render renders the operation name with args. Among operations sharing the
// name, the one with len(args) parameters whose kinds accept args is used.
// Errors are contract violations of kind erm.KindRender.
func (b *Bundle) Render(name string, args ...interface{}) (string, error) {
	op, err := b.dispatch(name, args)
	if err != nil {
		return "", err
	}
	return b.render(op, args)
}

// MustRender is like Render but panics on error.
func (b *Bundle) MustRender(name string, args ...interface{}) string {
	s, err := b.Render(name, args...)
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Bundle) dispatch(name string, args []interface{}) (*operation, error) {
	candidates, ok := b.byName[name]
	if !ok {
		return nil, erm.RenderFailure(name, fmt.Errorf("bundle %s has no operation %s", b.set.BundleID(), name))
	}

	var first *operation
	for _, op := range candidates {
		if op.spec.Arity() != len(args) {
			continue
		}
		if first == nil {
			first = op
		}
		if acceptsAll(op.spec.Params, args) {
			return op, nil
		}
	}
	if first == nil {
		return nil, erm.RenderFailure(name, fmt.Errorf("no overload takes %d arguments", len(args)))
	}
	return first, nil
}

func acceptsAll(kinds []ParamKind, args []interface{}) bool {
	for i, k := range kinds {
		if !k.accepts(args[i]) {
			return false
		}
	}
	return true
}

func (b *Bundle) render(op *operation, args []interface{}) (string, error) {
	if len(args) != op.spec.Arity() {
		return "", erm.RenderFailure(op.spec.Name, fmt.Errorf("%s takes %d arguments, got %d", op.spec.Signature(), op.spec.Arity(), len(args)))
	}
	if op.pattern == nil {
		return op.template, nil
	}

	values := make([]interface{}, len(args))
	for i, k := range op.spec.Params {
		v, err := k.coerce(args[i])
		if err != nil {
			return "", erm.RenderFailure(op.spec.Name, fmt.Errorf("argument %d: %w", i, err))
		}
		values[i] = v
	}

	s, err := op.pattern.Format(b.tag, values...)
	if err != nil {
		return "", erm.RenderFailure(op.spec.Name, err)
	}
	return s, nil
}
