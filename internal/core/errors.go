package core

import (
	"errors"
	"fmt"
)

// ErrClass classifies an error along the retry/recovery axis, the way the
// teacher's engine package does for its EngineError type.
type ErrClass string

const (
	ErrClassTransient ErrClass = "transient"
	ErrClassConflict  ErrClass = "conflict"
	ErrClassPermanent ErrClass = "permanent"
)

// ErrKind classifies an error along the component axis named in the
// specification: which stage of the reconciliation pipeline produced it.
type ErrKind string

const (
	KindConfig       ErrKind = "config"
	KindIntrospect   ErrKind = "introspection"
	KindPlan         ErrKind = "plan"
	KindApply        ErrKind = "apply"
	KindProcess      ErrKind = "process"
	KindInternal     ErrKind = "internal"
)

// CoreError is the error type produced by every package under internal/.
// It carries two independent axes: Kind says which component raised it,
// Class says whether the Orchestrator should consider retrying.
type CoreError struct {
	Kind      ErrKind
	Class     ErrClass
	Message   string
	Resource  string
	Operation string
	Err       error
}

func (e *CoreError) Error() string {
	switch {
	case e.Resource != "" && e.Operation != "":
		return fmt.Sprintf("[%s/%s] %s (resource=%s, operation=%s): %s",
			e.Kind, e.Class, e.Message, e.Resource, e.Operation, e.unwrapMessage())
	case e.Resource != "":
		return fmt.Sprintf("[%s/%s] %s (resource=%s): %s",
			e.Kind, e.Class, e.Message, e.Resource, e.unwrapMessage())
	default:
		return fmt.Sprintf("[%s/%s] %s: %s", e.Kind, e.Class, e.Message, e.unwrapMessage())
	}
}

func (e *CoreError) Unwrap() error { return e.Err }

func (e *CoreError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Class == t.Class
}

func newErr(kind ErrKind, class ErrClass, msg string, err error) *CoreError {
	return &CoreError{Kind: kind, Class: class, Message: msg, Err: err}
}

func NewConfigError(msg string, err error) *CoreError     { return newErr(KindConfig, ErrClassPermanent, msg, err) }
func NewIntrospectError(msg string, err error) *CoreError { return newErr(KindIntrospect, ErrClassTransient, msg, err) }
func NewPlanError(msg string, err error) *CoreError       { return newErr(KindPlan, ErrClassPermanent, msg, err) }
func NewApplyError(msg string, err error) *CoreError      { return newErr(KindApply, ErrClassConflict, msg, err) }
func NewProcessError(msg string, err error) *CoreError    { return newErr(KindProcess, ErrClassTransient, msg, err) }
func NewInternalError(msg string, err error) *CoreError   { return newErr(KindInternal, ErrClassPermanent, msg, err) }

func (e *CoreError) WithResource(id string) *CoreError  { e.Resource = id; return e }
func (e *CoreError) WithOperation(op string) *CoreError { e.Operation = op; return e }
func (e *CoreError) WithClass(c ErrClass) *CoreError     { e.Class = c; return e }

// IsRetryable reports whether the orchestrator may retry the operation that
// produced err without operator intervention.
func IsRetryable(err error) bool {
	var e *CoreError
	if errors.As(err, &e) {
		return e.Class == ErrClassTransient || e.Class == ErrClassConflict
	}
	return false
}

// IsKind reports whether err (or something it wraps) is a CoreError of kind k.
func IsKind(err error, k ErrKind) bool {
	var e *CoreError
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// VersionGapError is returned by the Project Loader when a model's version
// history is not gap-free (§4.1).
type VersionGapError struct {
	Model    string
	Previous string
	Found    string
}

func (e *VersionGapError) Error() string {
	return fmt.Sprintf("version gap for model %s: expected successor of %s, found %s",
		e.Model, e.Previous, e.Found)
}
