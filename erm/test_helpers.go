// Package erm provides test helpers shared by the packages that raise erm errors.
package erm

import (
	"strings"
	"testing"
)

// TestHelper provides common assertions on erm errors.
type TestHelper struct {
	t *testing.T
}

// NewTestHelper creates a new test helper.
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// AssertKind checks that err is an erm error of the expected kind.
func (h *TestHelper) AssertKind(err error, want Kind) Error {
	h.t.Helper()
	if err == nil {
		h.t.Fatalf("expected %s error, but got nil", want)
	}
	if got := KindOf(err); got != want {
		h.t.Fatalf("expected %s error, got %s: %v", want, got, err)
	}
	e, _ := err.(Error)
	return e
}

// AssertErrorContains checks that an error contains the expected text.
func (h *TestHelper) AssertErrorContains(err error, expectedText string) {
	h.t.Helper()
	if err == nil {
		h.t.Fatalf("expected error containing %q, but got nil", expectedText)
	}
	if !strings.Contains(err.Error(), expectedText) {
		h.t.Fatalf("expected error containing %q, got %q", expectedText, err.Error())
	}
}

// AssertNoError checks that no error occurred.
func (h *TestHelper) AssertNoError(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("expected no error, got: %v", err)
	}
}
