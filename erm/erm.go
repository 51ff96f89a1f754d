// Package erm provides the error model of the translations module. Every
// failure raised while resolving, validating or rendering a message bundle is
// an Error carrying a Kind, an HTTP status code, a safe user-facing message,
// an i18n message key with template parameters and, for internal failures,
// a captured stack trace.
//
// # Basic Usage
//
//	// Create errors of a given kind
//	err := erm.ResourceNotFound("messages", "_fr")
//
//	// Classify any error
//	erm.KindOf(err)                             // erm.KindResourceNotFound
//	errors.Is(err, erm.ErrResourceNotFound)     // true
//	erm.Status(err)                             // http.StatusNotFound
//
// # Error Collection Usage
//
//	// Collect several independent failures under one container
//	container := erm.New(erm.KindInvalid, "bundle check failed", nil)
//	container.AddError(err1)
//	container.AddError(err2)
//
// # Internationalization
//
// Messages are resolved on demand through github.com/nicksnyder/go-i18n/v2
// from the catalogues embedded under locales/. Error() always renders with
// the English localizer; LocalizedError accepts any localizer returned by
// Localizer.
//
// All functions handle nil errors gracefully and are safe for concurrent use.
package erm

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/c3p0-box/translations/set"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalid
	KindResourceNotFound
	KindMissingTranslation
	KindArityMismatch
	KindExtraKeys
	KindMalformedPattern
	KindRender
	KindStore
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindInvalid:            "invalid",
	KindResourceNotFound:   "resource_not_found",
	KindMissingTranslation: "missing_translation",
	KindArityMismatch:      "arity_mismatch",
	KindExtraKeys:          "extra_keys",
	KindMalformedPattern:   "malformed_pattern",
	KindRender:             "render",
	KindStore:              "store",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Code returns the HTTP status code reported for errors of this kind.
func (k Kind) Code() int {
	switch k {
	case KindInvalid, KindRender:
		return http.StatusBadRequest
	case KindResourceNotFound, KindMissingTranslation:
		return http.StatusNotFound
	case KindArityMismatch, KindExtraKeys, KindMalformedPattern:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// Core Types & Interfaces
// =============================================================================

// Error represents an enriched error of the translations module.
//
// Beyond the standard Error() method, it provides:
//   - Kind: the failure category used by callers to branch on
//   - Code: HTTP status code for the preview server
//   - Stack: stack trace, captured only for internal failures
//   - Localization: message key and parameters for go-i18n
//   - Error Collection: several related failures under one value
//
// Error values work with errors.Is (against the Err* sentinels) and
// errors.As (against *StackError).
type Error interface {
	error

	// Kind returns the failure category
	Kind() Kind

	// Code returns the HTTP status code associated with this error
	Code() int

	// Unwrap returns the wrapped error for errors.Is/As compatibility
	Unwrap() error

	// Stack returns the stack trace as an array of program counters.
	// Returns nil unless the error is internal (HTTP 500).
	Stack() []uintptr

	// MessageKey returns the i18n message key for localization
	MessageKey() string

	// Params returns template parameters for i18n message substitution
	Params() map[string]interface{}

	// AddError adds another error to this error's collection.
	AddError(Error)

	// AllErrors returns all child errors.
	AllErrors() []Error

	// HasErrors returns true if this error contains child errors.
	HasErrors() bool

	// LocalizedError returns the localized error message using the provided localizer
	LocalizedError(*i18n.Localizer) string

	// WithMessageKey sets the i18n message key and returns a new Error
	WithMessageKey(messageKey string) Error

	// WithParam adds a template parameter for i18n substitution
	WithParam(key string, value interface{}) Error
}

// StackError is the only implementation of Error.
//
// StackError captures:
//   - kind: failure category
//   - code: HTTP status code derived from kind
//   - msg: safe user-facing message
//   - root: wrapped underlying error
//   - stack: program counters, only for internal failures
//   - messageKey: go-i18n message id
//   - params: template data for messageKey
//   - errors: child errors (single level only)
type StackError struct {
	kind       Kind
	code       int
	msg        string
	root       error
	stack      []uintptr
	messageKey string
	params     map[string]interface{}
	errors     []Error
	sentinel   bool
}

// =============================================================================
// Core Constructors
// =============================================================================

// New creates a new Error of the given kind. The HTTP status code is derived
// from the kind and a stack trace is captured only when that code is 500.
//
//	err := erm.New(erm.KindStore, "template store failure", dbErr)
//	// err.Code() returns 500
//	// err.Stack() returns the captured stack trace
//	// err.Unwrap() returns dbErr
func New(kind Kind, msg string, err error) Error {
	return newError(kind, msg, err, 3)
}

func newError(kind Kind, msg string, err error, skip int) *StackError {
	code := kind.Code()

	var stack []uintptr
	if code == http.StatusInternalServerError {
		const depth = 32
		var pcs [depth]uintptr
		n := runtime.Callers(skip, pcs[:])
		stack = pcs[:n]
	}

	return &StackError{
		kind:  kind,
		code:  code,
		msg:   msg,
		root:  err,
		stack: stack,
	}
}

func sentinel(kind Kind) *StackError {
	return &StackError{kind: kind, code: kind.Code(), msg: kind.String(), sentinel: true}
}

// Sentinels for errors.Is. Every Error of the same kind matches.
var (
	ErrInvalid            error = sentinel(KindInvalid)
	ErrResourceNotFound   error = sentinel(KindResourceNotFound)
	ErrMissingTranslation error = sentinel(KindMissingTranslation)
	ErrArityMismatch      error = sentinel(KindArityMismatch)
	ErrExtraKeys          error = sentinel(KindExtraKeys)
	ErrMalformedPattern   error = sentinel(KindMalformedPattern)
	ErrRender             error = sentinel(KindRender)
	ErrStore              error = sentinel(KindStore)
)

// =============================================================================
// Basic StackError Methods
// =============================================================================

// Error returns the English message of the error.
func (e *StackError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.messageKey != "" || len(e.errors) > 0 {
		return e.LocalizedError(Localizer())
	}

	return e.getFallbackMessage()
}

// Is reports whether target is the sentinel of e's kind.
func (e *StackError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*StackError)
	if !ok || !t.sentinel {
		return false
	}
	return t.kind == e.kind
}

func (e *StackError) Kind() Kind {
	if e == nil {
		return KindUnknown
	}
	return e.kind
}

// Code returns the HTTP status code associated with this error.
func (e *StackError) Code() int {
	if e == nil {
		return 0
	}
	return e.code
}

// Unwrap returns the underlying error.
func (e *StackError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.root
}

// Stack returns a copy of the captured program counters.
func (e *StackError) Stack() []uintptr {
	if e == nil || e.stack == nil {
		return nil
	}
	stack := make([]uintptr, len(e.stack))
	copy(stack, e.stack)
	return stack
}

// MessageKey returns the i18n message key for localization.
func (e *StackError) MessageKey() string {
	if e == nil {
		return ""
	}
	return e.messageKey
}

// Params returns the template parameters.
func (e *StackError) Params() map[string]interface{} {
	if e == nil {
		return nil
	}
	return e.params
}

// WithMessageKey sets the i18n message key.
func (e *StackError) WithMessageKey(messageKey string) Error {
	if e == nil {
		return nil
	}
	new := *e
	new.messageKey = messageKey
	return &new
}

// WithParam adds a template parameter.
func (e *StackError) WithParam(key string, value interface{}) Error {
	if e == nil {
		return nil
	}
	new := *e
	params := make(map[string]interface{}, len(e.params)+1)
	for k, v := range e.params {
		params[k] = v
	}
	params[key] = value
	new.params = params
	return &new
}

// =============================================================================
// Error Collection Methods
// =============================================================================

// AddError adds a child error to this error's collection. Containers are
// flattened so that only one level of nesting exists.
func (e *StackError) AddError(err Error) {
	if e == nil || err == nil {
		return
	}

	if err.HasErrors() {
		for _, child := range err.AllErrors() {
			if child != nil {
				e.errors = append(e.errors, child)
			}
		}
		return
	}
	e.errors = append(e.errors, err)
}

// AllErrors returns all child errors.
func (e *StackError) AllErrors() []Error {
	if e == nil {
		return nil
	}
	return e.errors
}

// HasErrors returns true if this error contains child errors.
func (e *StackError) HasErrors() bool {
	if e == nil {
		return false
	}
	return len(e.errors) > 0
}

// =============================================================================
// Localization Methods
// =============================================================================

// LocalizedError returns the error message using the provided localizer.
// Falls back to the English localizer if localizer is nil.
func (e *StackError) LocalizedError(localizer *i18n.Localizer) string {
	if e == nil {
		return "<nil>"
	}
	if localizer == nil {
		localizer = Localizer()
	}

	if len(e.errors) > 0 {
		return e.formatChildErrors(localizer)
	}

	if e.messageKey != "" {
		cfg := &i18n.LocalizeConfig{
			MessageID:    e.messageKey,
			TemplateData: e.params,
		}
		if n, ok := e.params["count"]; ok {
			cfg.PluralCount = n
		}
		msg, err := localizer.Localize(cfg)
		if err == nil && msg != "" {
			return msg
		}
	}

	return e.getFallbackMessage()
}

func (e *StackError) formatChildErrors(localizer *i18n.Localizer) string {
	var messages []string
	for _, err := range e.errors {
		if err != nil {
			messages = append(messages, err.LocalizedError(localizer))
		}
	}

	switch len(messages) {
	case 0:
		return ""
	case 1:
		return messages[0]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    "error.multiple",
		TemplateData: map[string]interface{}{"errors": strings.Join(messages, "; ")},
	})
	if err != nil {
		return fmt.Sprintf("multiple errors: %s", strings.Join(messages, "; "))
	}
	return msg
}

func (e *StackError) getFallbackMessage() string {
	if e.root != nil {
		if e.msg != "" {
			return e.msg + ": " + e.root.Error()
		}
		return e.root.Error()
	}
	if e.msg != "" {
		return e.msg
	}
	if e.messageKey != "" {
		return fmt.Sprintf("%s error (key: %s)", e.kind, e.messageKey)
	}
	return "unknown error"
}

// =============================================================================
// Helper Functions
// =============================================================================

// KindOf returns the Kind of the first Error in err's chain, KindUnknown for
// other non-nil errors.
func KindOf(err error) Kind {
	var e *StackError
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnknown
}

// Status extracts the HTTP status code from any error.
//
// Returns:
//   - For erm errors: the status code of their kind
//   - For standard errors: http.StatusInternalServerError (500)
//   - For nil errors: http.StatusOK (200)
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var e *StackError
	if errors.As(err, &e) {
		return e.Code()
	}

	return http.StatusInternalServerError
}

// Message extracts a safe user-facing message from any error.
//
// Returns:
//   - For erm errors with a message key: the English localized message
//   - For erm errors with custom message: the custom message
//   - For other errors: the HTTP status text
//   - For nil errors: empty string
func Message(err error) string {
	if err == nil {
		return ""
	}

	var e *StackError
	if errors.As(err, &e) {
		if e.messageKey != "" || len(e.errors) > 0 {
			return e.LocalizedError(Localizer())
		}
		if e.msg != "" {
			return e.msg
		}
		return http.StatusText(e.Code())
	}

	return http.StatusText(http.StatusInternalServerError)
}

// Stack extracts the stack trace from any error that supports it.
func Stack(err error) []uintptr {
	var e *StackError
	if errors.As(err, &e) {
		return e.Stack()
	}
	return nil
}

// Wrap wraps an error with erm error capabilities.
//
// Behavior:
//   - If err is nil: returns nil
//   - If err is already an erm error: returns it unchanged
//   - Otherwise: wraps it as KindUnknown
func Wrap(err error) Error {
	if err == nil {
		return nil
	}

	if e, ok := err.(Error); ok {
		return e
	}

	return newError(KindUnknown, "Internal Server Error", err, 3)
}

// FormatStack formats a stack trace into a human-readable string.
//
// Example output:
//
//	github.com/c3p0-box/translations/bundle.(*Cache).build
//		/app/bundle/cache.go:42
func FormatStack(err Error) string {
	if err == nil {
		return ""
	}

	pcs := err.Stack()
	if len(pcs) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		_, _ = fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return buf.String()
}

// =============================================================================
// Convenience Constructors
// =============================================================================

// Invalid creates a KindInvalid error for bad declarations or arguments.
func Invalid(msg string, err error) Error {
	return newError(KindInvalid, msg, err, 3)
}

// ResourceNotFound reports that no template source exists for bundleID under
// the given locale suffix.
func ResourceNotFound(bundleID, suffix string) Error {
	return newError(KindResourceNotFound, "", nil, 3).
		WithMessageKey("error.resource_not_found").
		WithParam("bundle", bundleID).
		WithParam("suffix", suffix)
}

// MissingTranslation reports an operation without template in locale.
func MissingTranslation(operation, locale string) Error {
	return newError(KindMissingTranslation, "", nil, 3).
		WithMessageKey("error.missing_translation").
		WithParam("operation", operation).
		WithParam("locale", locale)
}

// ArityMismatch reports an operation whose template uses a different number
// of arguments than it declares.
func ArityMismatch(operation string, declared, found int) Error {
	return newError(KindArityMismatch, "", nil, 3).
		WithMessageKey("error.arity_mismatch").
		WithParam("operation", operation).
		WithParam("declared", declared).
		WithParam("found", found)
}

// ExtraKeys reports template keys that match no declared operation.
// keys are reported in ascending order.
func ExtraKeys(bundleID string, keys set.Set[string]) Error {
	return newError(KindExtraKeys, "", nil, 3).
		WithMessageKey("error.extra_keys").
		WithParam("bundle", bundleID).
		WithParam("keys", set.Join(keys, ", ")).
		WithParam("count", keys.Size())
}

// MalformedPattern reports a template that cannot be parsed.
func MalformedPattern(operation, detail string, err error) Error {
	return newError(KindMalformedPattern, "", err, 3).
		WithMessageKey("error.malformed_pattern").
		WithParam("operation", operation).
		WithParam("detail", detail)
}

// RenderFailure reports a template that failed to render with the given arguments.
func RenderFailure(operation string, err error) Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return newError(KindRender, "", err, 3).
		WithMessageKey("error.render").
		WithParam("operation", operation).
		WithParam("detail", detail)
}

// StoreFailure reports an I/O failure of a template store.
func StoreFailure(bundleID string, err error) Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return newError(KindStore, "template store failure", err, 3).
		WithMessageKey("error.store").
		WithParam("bundle", bundleID).
		WithParam("detail", detail)
}
