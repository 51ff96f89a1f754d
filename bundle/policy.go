package bundle

import (
	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/locale"
	"github.com/c3p0-box/translations/pattern"
	"github.com/c3p0-box/translations/set"
	"github.com/c3p0-box/translations/store"
)

// policy applies a Configuration to the templates of one load.
type policy struct {
	cfg       Configuration
	locale    locale.Locale
	templates store.Templates
	used      set.Set[string]
}

func newPolicy(cfg Configuration, loc locale.Locale, templates store.Templates) *policy {
	return &policy{
		cfg:       cfg,
		locale:    loc,
		templates: templates,
		used:      set.New[string](),
	}
}

// prepare returns the effective template of spec, parsed unless spec takes
// no parameter. The key counts as used even when validation fails.
func (p *policy) prepare(spec OperationSpec) (string, *pattern.Pattern, error) {
	p.used.Add(spec.Name)

	raw, ok := p.templates[spec.Name]
	if !ok {
		if !p.cfg.IgnoreMissing {
			return "", nil, erm.MissingTranslation(spec.Name, p.locale.String())
		}
		raw = spec.Name
	} else if !p.cfg.IgnoreArityMismatch {
		n, err := pattern.MaxArgIndex(raw)
		if err != nil {
			return "", nil, erm.MalformedPattern(spec.Name, err.Error(), err)
		}
		if found := n + 1; found != spec.Arity() {
			return "", nil, erm.ArityMismatch(spec.Name, spec.Arity(), found)
		}
	}

	if spec.Arity() == 0 {
		return raw, nil, nil
	}
	parsed, err := pattern.Parse(raw)
	if err != nil {
		return "", nil, erm.MalformedPattern(spec.Name, err.Error(), err)
	}
	return raw, parsed, nil
}

// checkExtra reports the template keys no prepared operation used.
func (p *policy) checkExtra(bundleID string) error {
	if p.cfg.IgnoreExtra {
		return nil
	}
	extra := set.Keys(p.templates).Difference(p.used)
	if extra.IsEmpty() {
		return nil
	}
	return erm.ExtraKeys(bundleID, extra)
}
