package lib

import (
	"errors"
	"fmt"
)

var (
	ErrProvider       = errors.New("provider error")
	ErrEncodingFailed = errors.New("encoding failed")
	ErrFileTooLarge   = errors.New("file too large")
	ErrConfiguration  = errors.New("configuration error")
	ErrPersistence    = errors.New("persistence error")
)

// ProviderError is a failure of a remote dependency: AI, payment provider or media extractor.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// FileTooLargeError carries the best effort final size after the encoder exhausted its ladder.
type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %.1fMB exceeds %.1fMB", megabytes(e.Size), megabytes(e.Limit))
}

func (e *FileTooLargeError) Is(target error) bool {
	return target == ErrFileTooLarge
}

func megabytes(size int64) float64 {
	return float64(size) / 1024 / 1024
}
