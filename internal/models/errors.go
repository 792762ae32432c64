package models

import (
	"context"
	"errors"
)

// Sentinel errors shared by ingestion and workflow execution.
var (
	ErrAccessDenied           = errors.New("resource cannot be opened or resolved")
	ErrRecognitionUnavailable = errors.New("recognition unavailable")
	ErrRenderFailure          = errors.New("page render failed")
	ErrWriteFailure           = errors.New("resource could not be written")
	ErrInvalidStep            = errors.New("invalid workflow step")
	ErrLocked                 = errors.New("resource is locked by another run")
	ErrNotFound               = errors.New("document not found")
)

// FailureKind is the serialized category of a failed item or step.
type FailureKind string

const (
	FailureAccessDenied FailureKind = "AccessDenied"
	FailureRecognition  FailureKind = "RecognitionUnavailable"
	FailureRender       FailureKind = "RenderFailure"
	FailureWrite        FailureKind = "WriteFailure"
	FailureInvalidStep  FailureKind = "InvalidStep"
	FailureLocked       FailureKind = "Locked"
	FailureNotFound     FailureKind = "NotFound"
	FailureCanceled     FailureKind = "Canceled"
	FailureInternal     FailureKind = "Internal"
)

// FailureKindOf maps err onto the taxonomy. It returns "" for a nil error.
func FailureKindOf(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccessDenied):
		return FailureAccessDenied
	case errors.Is(err, ErrRecognitionUnavailable):
		return FailureRecognition
	case errors.Is(err, ErrRenderFailure):
		return FailureRender
	case errors.Is(err, ErrWriteFailure):
		return FailureWrite
	case errors.Is(err, ErrInvalidStep):
		return FailureInvalidStep
	case errors.Is(err, ErrLocked):
		return FailureLocked
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	}
	return FailureInternal
}
