package lua

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// ModuleName is the name of the module scripts load with require.
const ModuleName = "nucleon"

// Capability represents a permission that can be granted to scripts.
type Capability string

// Available capabilities.
const (
	// CapabilityEnv exposes nucleon.getenv.
	CapabilityEnv Capability = "env"
	// CapabilityFileRead exposes nucleon.read_file.
	CapabilityFileRead Capability = "filesystem.read"
)

// Sandbox restricts Lua execution to safe operations and provides the
// nucleon module.
type Sandbox struct {
	L      *lua.LState
	logger *slog.Logger
	module *lua.LTable

	capabilities map[Capability]bool
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sandbox{
		L:            L,
		logger:       logger,
		capabilities: make(map[Capability]bool),
	}
}

// Install removes unsafe globals and installs the nucleon module and a
// whitelisting require.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.module = s.L.NewTable()
	s.L.SetFuncs(s.module, map[string]lua.LGFunction{
		"log":  s.log,
		"time": luaTime,
	})
	s.L.SetGlobal(ModuleName, s.module)
	s.installSafeRequire()
}

// installSafeRequire clears package search paths and replaces require with
// a version that only returns whitelisted modules.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		switch name {
		case ModuleName:
			L.Push(s.module)
		case "string", "table", "math":
			L.Push(L.GetGlobal(name))
		default:
			L.RaiseError("module %q is not available", name)
			return 0
		}
		return 1
	}))
}

// Grant enables a capability.
func (s *Sandbox) Grant(c Capability) {
	if s.capabilities[c] {
		return
	}
	s.capabilities[c] = true

	switch c {
	case CapabilityEnv:
		s.L.SetField(s.module, "getenv", s.L.NewFunction(func(L *lua.LState) int {
			name := L.CheckString(1)
			if v, ok := os.LookupEnv(name); ok {
				L.Push(lua.LString(v))
				return 1
			}
			L.Push(lua.LNil)
			return 1
		}))
	case CapabilityFileRead:
		s.L.SetField(s.module, "read_file", s.L.NewFunction(func(L *lua.LState) int {
			data, err := os.ReadFile(L.CheckString(1))
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LString(data))
			return 1
		}))
	}
}

// HasCapability returns true if the capability is granted.
func (s *Sandbox) HasCapability(c Capability) bool {
	return s.capabilities[c]
}

// log implements nucleon.log(level, message).
func (s *Sandbox) log(L *lua.LState) int {
	level := slog.LevelInfo
	switch strings.ToLower(L.CheckString(1)) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s.logger.Log(ctx, level, L.OptString(2, ""), "source", "lua")
	return 0
}

// luaTime implements nucleon.time(), returning Unix seconds.
func luaTime(L *lua.LState) int {
	L.Push(lua.LNumber(time.Now().Unix()))
	return 1
}
