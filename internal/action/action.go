package action

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/manager"
	"github.com/dshills/nucleon/status"
)

// Func runs an action with its positional arguments.
type Func func(ctx context.Context, env *Env, args []string) error

// Action is a named CLI operation.
type Action struct {
	Name  string
	Short string
	Run   Func
}

// Env is the state an action runs against.
type Env struct {
	// Manager is the plugin manager of the process.
	Manager *manager.Manager
	// Options is the merged process configuration.
	Options *config.Config
	// Status maps outcomes to exit codes. Defaults to the manager's table.
	Status *status.Table
	// Out receives user-facing output. Defaults to io.Discard.
	Out io.Writer
	// Logger is used when the context carries no logger.
	Logger *slog.Logger
	// Version is reported by the version action.
	Version string
}

func (e *Env) table() *status.Table {
	if e.Status != nil {
		return e.Status
	}
	if e.Manager != nil {
		return e.Manager.Globals().Status
	}
	return status.Default()
}

func (e *Env) out() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return io.Discard
}

func (e *Env) logger(ctx context.Context) *slog.Logger {
	if l := slogcontext.FromCtx(ctx); l != slog.Default() || e.Logger == nil {
		return l
	}
	return e.Logger
}

// Registry holds actions by name.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action, replacing one with the same name.
func (r *Registry) Register(a Action) error {
	if a.Name == "" || a.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidAction, a.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.Name] = a
	return nil
}

// Get returns the action registered under name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Actions returns all actions sorted by name.
func (r *Registry) Actions() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Run executes the named action and returns its status code. Panics are
// recovered. Failures are logged and their message written to env.Out.
func Run(ctx context.Context, reg *Registry, env *Env, name string, args []string) int {
	if env == nil {
		env = &Env{}
	}
	logger := env.logger(ctx).With("action", name)
	table := env.table()

	start := time.Now()
	err := execute(ctx, reg, env, name, args)
	code := table.FromError(err)
	if err != nil {
		logger.Error("action failed", "status", table.Name(code), "error", err)
		fmt.Fprintf(env.out(), "Error: %v\n", err)
		return code
	}
	logger.Debug("action finished", "duration", time.Since(start))
	return code
}

// execute runs the action with panic recovery.
func execute(ctx context.Context, reg *Registry, env *Env, name string, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			env.logger(ctx).Debug("action panic stack", "action", name, "stack", string(stack[:n]))
			err = &Error{Status: status.UnknownStatus, Err: fmt.Errorf("%w in %s: %v", ErrPanic, name, r)}
		}
	}()

	if name == "" {
		return &Error{Status: status.HelpWanted, Err: ErrNoAction}
	}
	a, ok := reg.Get(name)
	if !ok {
		return &Error{Status: status.ActionUnprocessed, Err: fmt.Errorf("%w: %q", ErrUnknownAction, name)}
	}
	return a.Run(ctx, env, args)
}
