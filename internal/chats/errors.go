package chats

import (
	"errors"
	"fmt"

	"github.com/strrl/chat-history/pkg/models"
)

// ErrSuperseded is returned by Load when a newer load or scope change made
// the result stale before it was applied.
var ErrSuperseded = errors.New("load superseded by a newer request")

// LoadError wraps a listing or search failure.
type LoadError struct {
	Op    string // "list" or "search"
	Scope models.Scope
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s chats for %s: %v", e.Op, e.Scope, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
