// Package status maintains the process-wide table of symbolic status codes.
//
// Codes are small non-negative integers assigned in registration order.
// The table is append-only: a name keeps its code for the life of the
// process, and unknown names resolve to the reserved UnknownStatus code.
package status

import (
	"errors"
	"sync"

	"github.com/dshills/nucleon/config"
)

// Reserved and conventional status names.
const (
	Success           = "success"
	HelpWanted        = "help_wanted"
	UnknownStatus     = "unknown_status"
	ActionUnprocessed = "action_unprocessed"
	BatchError        = "batch_error"
	ValidationFailed  = "validation_failed"
	AccessDenied      = "access_denied"
)

// Coder is implemented by errors that carry a status name.
type Coder interface {
	StatusCode() string
}

// Table maps status names to codes. It is safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	codes map[string]int
	names []string
}

// NewTable creates a table with names registered in order from 0.
// UnknownStatus is appended when not among names.
func NewTable(names ...string) *Table {
	t := &Table{codes: make(map[string]int)}
	for _, name := range names {
		t.Register(name)
	}
	t.Register(UnknownStatus)
	return t
}

// Default creates a table with the standard nucleon vocabulary.
// Success is always 0.
func Default() *Table {
	return NewTable(
		Success,
		HelpWanted,
		UnknownStatus,
		ActionUnprocessed,
		BatchError,
		ValidationFailed,
		AccessDenied,
	)
}

// Register adds name and returns its code. Registering an existing name
// returns the code it already has.
func (t *Table) Register(name string) int {
	name = config.SanitizeID(name)

	t.mu.Lock()
	defer t.mu.Unlock()
	if code, ok := t.codes[name]; ok {
		return code
	}
	code := len(t.names)
	t.codes[name] = code
	t.names = append(t.names, name)
	return code
}

// Code returns the code for name, or the UnknownStatus code.
func (t *Table) Code(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if code, ok := t.codes[config.SanitizeID(name)]; ok {
		return code
	}
	return t.codes[UnknownStatus]
}

// Lookup returns the code for name and whether it is registered.
func (t *Table) Lookup(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	code, ok := t.codes[config.SanitizeID(name)]
	return code, ok
}

// Name returns the name registered for code, or UnknownStatus.
func (t *Table) Name(code int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if code < 0 || code >= len(t.names) {
		return UnknownStatus
	}
	return t.names[code]
}

// Names returns every registered name in code order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.names...)
}

// Codes returns a copy of the name to code mapping.
func (t *Table) Codes() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	codes := make(map[string]int, len(t.codes))
	for name, code := range t.codes {
		codes[name] = code
	}
	return codes
}

// FromError maps err to a code. Nil is Success; errors implementing Coder
// anywhere in their chain use the carried name; the rest are UnknownStatus.
func (t *Table) FromError(err error) int {
	if err == nil {
		return t.Code(Success)
	}
	var coder Coder
	if errors.As(err, &coder) {
		return t.Code(coder.StatusCode())
	}
	return t.Code(UnknownStatus)
}
