package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested item does not exist.
	// Metadata updates on a missing ID fail with this; deletes do not.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendUnavailable indicates the vector backend could not be
	// reached or set up. Non-fatal to process startup; callers retry.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrUnsupportedMode indicates the backend does not implement the
	// requested search mode. The relevance engine falls back to the
	// next strategy; the error is never retried.
	ErrUnsupportedMode = errors.New("unsupported search mode")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Summaries and reranking are disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector and hybrid search are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ErrorClass partitions backend failures into retryable and terminal.
type ErrorClass string

const (
	// Transient errors (network, timeout) may be retried a small fixed
	// number of times.
	Transient ErrorClass = "transient"

	// Permanent errors (malformed input, unsupported operation) are
	// never retried.
	Permanent ErrorClass = "permanent"
)

// BackendError wraps a failure from a vector backend with its retry class.
type BackendError struct {
	// Backend names the adapter ("weaviate", "milvus", ...).
	Backend string

	// Op is the failing operation ("write", "search", ...).
	Op string

	// Class is Transient or Permanent.
	Class ErrorClass

	// Err is the underlying cause.
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retryable backend failure.
func NewTransient(backend, op string, err error) error {
	return &BackendError{Backend: backend, Op: op, Class: Transient, Err: err}
}

// NewPermanent wraps err as a terminal backend failure.
func NewPermanent(backend, op string, err error) error {
	return &BackendError{Backend: backend, Op: op, Class: Permanent, Err: err}
}

// IsTransient reports whether err is a retryable backend failure.
// Unclassified errors are treated as permanent.
func IsTransient(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Class == Transient
	}
	return false
}

// DateGrammar lists the natural-language date expressions the datetime
// filter understands. Surfaced in UnparsableDateQuery errors.
var DateGrammar = []string{
	"today", "yesterday",
	"this week", "last week",
	"this month", "last month",
	"this year", "last year",
	"N days ago", "N weeks ago", "N months ago", "N years ago",
}

// UnparsableDateQuery indicates a date expression outside the supported
// grammar. It is surfaced to the caller with the grammar, never replaced
// by a silent default.
type UnparsableDateQuery struct {
	Expression string
}

func (e *UnparsableDateQuery) Error() string {
	return fmt.Sprintf("unparsable date query %q (supported: %s)",
		e.Expression, strings.Join(DateGrammar, ", "))
}
