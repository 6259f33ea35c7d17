package llm

import (
	"errors"
	"fmt"
)

var (
	ErrNoChoices    = errors.New("no choices in response")
	ErrEmptyContent = errors.New("empty content in first choice")
)

// ProviderError is returned by every Client when a completion could not be
// obtained. Err is the transport, API or decoding failure underneath.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: completion failed", e.Provider)
	}
	return fmt.Sprintf("%s: completion failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}
