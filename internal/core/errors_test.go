package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsRetryableByClass(t *testing.T) {
	if !IsRetryable(NewIntrospectError("observe", nil)) {
		t.Fatal("transient errors should be retryable")
	}
	if !IsRetryable(NewApplyError("apply", nil)) {
		t.Fatal("conflict errors should be retryable")
	}
	if IsRetryable(NewConfigError("parse", nil)) {
		t.Fatal("permanent errors should not be retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Fatal("a non-CoreError should never be reported retryable")
	}
}

func TestIsKindMatchesWrappedError(t *testing.T) {
	base := NewPlanError("evaluate policy", errors.New("boom"))
	wrapped := fmt.Errorf("planning failed: %w", base)

	if !IsKind(wrapped, KindPlan) {
		t.Fatal("IsKind should see through fmt.Errorf wrapping via errors.As")
	}
	if IsKind(wrapped, KindApply) {
		t.Fatal("IsKind should not match an unrelated kind")
	}
}

func TestWithResourceAndOperationAppearInMessage(t *testing.T) {
	err := NewApplyError("create topic", nil).WithResource("events").WithOperation("create")
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() should not be empty")
	}
	for _, want := range []string{"events", "create"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestVersionGapErrorMessage(t *testing.T) {
	err := &VersionGapError{Model: "PageView", Previous: "1.0.0", Found: "1.2.0"}
	if !strings.Contains(err.Error(), "PageView") {
		t.Fatalf("VersionGapError.Error() should name the model: %q", err.Error())
	}
}
