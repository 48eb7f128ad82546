package model

import (
	"errors"
	"fmt"
)

// MsgNoKnowledgeBase is reported when a source has no indexable text.
const MsgNoKnowledgeBase = "No knowledge base available"

// ConfigurationError means no corpus or index is available for a source.
// It is fatal for the whole request.
type ConfigurationError struct {
	Source string
	Msg    string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

// NoKnowledgeBase builds the ConfigurationError for an empty or unbuildable corpus.
func NoKnowledgeBase(source string) *ConfigurationError {
	return &ConfigurationError{Source: source, Msg: MsgNoKnowledgeBase}
}

// ModelOutputError means structured output could not be parsed even after repair.
type ModelOutputError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *ModelOutputError) Error() string {
	return fmt.Sprintf("model output does not match %s: %v", e.Schema, e.Err)
}

func (e *ModelOutputError) Unwrap() error { return e.Err }

// TransientCallError wraps a network or provider failure calling the LLM or
// the embedding service.
type TransientCallError struct {
	Op  string
	Err error
}

func (e *TransientCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientCallError) Unwrap() error { return e.Err }

// ValidationError is a malformed caller request, rejected before any LLM call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsModelOutput reports whether err is (or wraps) a ModelOutputError.
func IsModelOutput(err error) bool {
	var me *ModelOutputError
	return errors.As(err, &me)
}

// IsTransientCall reports whether err is (or wraps) a TransientCallError.
func IsTransientCall(err error) bool {
	var te *TransientCallError
	return errors.As(err, &te)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
