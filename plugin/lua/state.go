package lua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds every script execution and call.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with a sandbox and per-call timeouts.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes every
// operation issued through State.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	logger           *slog.Logger
	capabilities     []Capability

	sandbox *Sandbox
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout applied to each execution.
// Zero disables the timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithLogger sets the logger backing nucleon.log.
func WithLogger(logger *slog.Logger) StateOption {
	return func(s *State) {
		s.logger = logger
	}
}

// WithCapabilities grants sandbox capabilities.
func WithCapabilities(caps ...Capability) StateOption {
	return func(s *State) {
		s.capabilities = append(s.capabilities, caps...)
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L
	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.logger)
	state.sandbox.Install()
	for _, c := range state.capabilities {
		state.sandbox.Grant(c)
	}
	return state
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// run executes fn under the state lock with a timeout-bound context.
func (s *State) run(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	err = fn()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrExecutionTimeout, err)
	}
	return err
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error {
		return s.L.DoString(code)
	})
}

// HasFunction reports whether the named global is a function.
func (s *State) HasFunction(name string) bool {
	_, ok := s.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Call calls a global Lua function with Go arguments and returns its
// results converted to Go values.
func (s *State) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	fn, ok := s.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFunction, name)
	}
	return s.CallFunction(ctx, fn, args...)
}

// CallFunction calls a Lua function value with Go arguments.
// It returns an empty slice when the function returns nothing.
func (s *State) CallFunction(ctx context.Context, fn *lua.LFunction, args ...any) ([]any, error) {
	var results []any
	err := s.run(ctx, func() error {
		top := s.L.GetTop()
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(ToLua(s.L, arg))
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		n := s.L.GetTop() - top
		results = make([]any, n)
		for i := 0; i < n; i++ {
			results[i] = ToGo(s.L.Get(top + i + 1))
		}
		s.L.Pop(n)
		return nil
	})
	return results, err
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Global returns a global variable converted to a Go value.
func (s *State) Global(name string) any {
	return ToGo(s.GetGlobal(name))
}

// SetGlobal sets a global variable from a Go value.
func (s *State) SetGlobal(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, ToLua(s.L, value))
}

// Functions returns the function fields of a global table.
func (s *State) Functions(table string) map[string]*lua.LFunction {
	s.mu.Lock()
	defer s.mu.Unlock()
	funcs := make(map[string]*lua.LFunction)
	if s.closed {
		return funcs
	}
	tbl, ok := s.L.GetGlobal(table).(*lua.LTable)
	if !ok {
		return funcs
	}
	tbl.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		if fn, ok := v.(*lua.LFunction); ok {
			funcs[string(name)] = fn
		}
	})
	return funcs
}

// Sandbox returns the state's sandbox.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
