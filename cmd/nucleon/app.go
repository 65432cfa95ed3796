package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/config/layer"
	"github.com/dshills/nucleon/config/loader"
	"github.com/dshills/nucleon/internal/action"
	"github.com/dshills/nucleon/manager"
	"github.com/dshills/nucleon/plugin"
	"github.com/dshills/nucleon/status"
)

// Flag names. Each maps to the configuration path in flagPaths.
const (
	flagLogLevel   = "log_level"
	flagLogFormat  = "log_format"
	flagEncoded    = "encoded"
	flagPluginPath = "plugin_path"
	flagConcurrent = "concurrent"
	flagDumpDir    = "dump_dir"
)

var flagPaths = map[string]string{
	flagLogLevel:   "log.level",
	flagLogFormat:  "log.format",
	flagPluginPath: "plugin_path",
	flagConcurrent: "concurrent",
	flagDumpDir:    "dump_dir",
}

// configName is the base name of the optional configuration file in the
// working directory.
const configName = "nucleon"

// envPrefix prefixes environment variables read into the configuration.
const envPrefix = "NUCLEON_"

// dumpAttempts bounds the writes of the properties dump.
const dumpAttempts = 3

func defaults() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":  "warn",
			"format": "text",
		},
		"concurrent": false,
		"dump_dir":   "",
		"types": map[string]any{
			"nucleon": map[string]any{
				plugin.ExtensionType: "",
			},
		},
	}
}

// app runs one nucleon invocation.
type app struct {
	out     io.Writer
	errOut  io.Writer
	workDir string

	globals *manager.Globals
	actions *action.Registry

	code int
}

func newApp(out, errOut io.Writer, workDir string) *app {
	a := &app{
		out:     out,
		errOut:  errOut,
		workDir: workDir,
		globals: manager.NewGlobals(),
		actions: action.NewRegistry(),
	}
	// builtin names are static and valid
	_ = action.RegisterBuiltins(a.actions)
	return a
}

// execute runs the command line and returns the exit status code.
func (a *app) execute(ctx context.Context, args []string) int {
	cmd := a.command()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return a.globals.Status.FromError(err)
	}
	return a.code
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nucleon <action> [args...]",
		Short:         "Run nucleon actions against discovered plugins",
		Long:          a.long(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runE,
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.Flags()
	flags.String(flagLogLevel, "warn", "set the log level (debug, info, warn, error)")
	flags.String(flagLogFormat, "text", "set the log format (text, json)")
	flags.String(flagEncoded, "", "base64 encoded JSON argument bundle")
	flags.StringSlice(flagPluginPath, nil, "base path to discover plugins in (repeatable)")
	flags.Bool(flagConcurrent, false, "run plugin managers in concurrent mode")
	flags.String(flagDumpDir, "", "directory to dump process properties to after the action")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &action.Error{Status: status.HelpWanted, Err: err}
	})
	help := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		help(c, args)
		a.code = a.globals.Status.Code(status.HelpWanted)
	})
	return cmd
}

func (a *app) long() string {
	var b strings.Builder
	b.WriteString("Run nucleon actions against discovered plugins.\n\nActions:\n")
	for _, act := range a.actions.Actions() {
		fmt.Fprintf(&b, "  %-12s %s\n", act.Name, act.Short)
	}
	return b.String()
}

func (a *app) runE(cmd *cobra.Command, args []string) error {
	encoded, _ := cmd.Flags().GetString(flagEncoded)
	bundle := &action.Bundle{}
	if encoded != "" {
		var err error
		if bundle, err = action.DecodeBundle(encoded); err != nil {
			return &action.Error{Status: status.ValidationFailed, Err: err}
		}
	}

	settings, err := a.settings(cmd, bundle)
	if err != nil {
		return err
	}

	logger, err := newLogger(a.errOut, settings)
	if err != nil {
		return &action.Error{Status: status.ValidationFailed, Err: err}
	}
	ctx := slogcontext.NewCtx(cmd.Context(), logger)

	name := bundle.Action
	actionArgs := append([]string(nil), bundle.Args...)
	if len(args) > 0 {
		name = args[0]
		actionArgs = append(actionArgs, args[1:]...)
	}
	if name == "" {
		_ = cmd.Help()
		return nil
	}

	reg := manager.NewRegistry(manager.RegistryOptions{
		Concurrent: settings.GetBool("concurrent", false),
		Logger:     logger,
		Globals:    a.globals,
	})
	m := reg.Connection(manager.DefaultName)
	defer func() {
		if err := reg.ResetAll(ctx); err != nil {
			logger.Warn("closing plugin managers failed", "error", err)
		}
	}()

	if err := defineTypes(ctx, m, settings); err != nil {
		return &action.Error{Status: status.ValidationFailed, Err: err}
	}
	for _, basePath := range pluginPaths(settings) {
		if err := m.Register(ctx, basePath); err != nil {
			logger.Warn("registering plugins failed", "base_path", basePath, "error", err)
		}
	}
	if err := m.Autoload(ctx); err != nil {
		logger.Warn("loading extensions failed", "error", err)
	}

	env := &action.Env{
		Manager: m,
		Options: settings,
		Status:  a.globals.Status,
		Out:     a.out,
		Logger:  logger,
		Version: version,
	}
	a.code = action.Run(ctx, a.actions, env, name, actionArgs)

	a.globals.Properties.Set("run", map[string]any{
		"action": name,
		"args":   actionArgs,
		"status": a.globals.Status.Name(a.code),
		"code":   a.code,
	})
	var path string
	err = action.Retry(dumpAttempts, func() error {
		var err error
		path, err = a.globals.Properties.Save(config.SaveOptions{Dir: settings.GetString("dump_dir", "")})
		return err
	})
	if err != nil {
		logger.Warn("dumping properties failed", "error", err)
	} else if path != "" {
		logger.Debug("properties dumped", "path", path)
	}
	return nil
}

// settings merges builtin defaults, the configuration file, NUCLEON_*
// environment variables, the bundle settings and explicitly set flags.
func (a *app) settings(cmd *cobra.Command, bundle *action.Bundle) (*config.Config, error) {
	stack := layer.NewStack(layer.NewLayerWithData(layer.SourceBuiltin, defaults()))

	data, path, err := loader.FirstExisting(nil, a.workDir, configName)
	if err != nil {
		return nil, &action.Error{Status: status.ValidationFailed, Err: err}
	}
	if data != nil {
		file := layer.NewLayerWithData(layer.SourceFile, data)
		file.Path = path
		stack.Add(file)
	}

	envData, err := loader.NewEnvLoader(envPrefix).Load()
	if err != nil {
		return nil, err
	}
	stack.Add(layer.NewLayerWithData(layer.SourceEnv, envData))

	args := layer.NewLayerWithData(layer.SourceArgs, config.New(bundle.Settings).Export())
	for flag, cfgPath := range flagPaths {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		var value any
		switch flag {
		case flagPluginPath:
			value, _ = cmd.Flags().GetStringSlice(flag)
		case flagConcurrent:
			value, _ = cmd.Flags().GetBool(flag)
		default:
			value, _ = cmd.Flags().GetString(flag)
		}
		args.Set(cfgPath, value)
	}
	stack.Add(args)
	return stack.Merge(), nil
}

// defineTypes defines the plugin types named by the types setting, a map
// of namespace to type to default provider. Defining a type makes its
// namespace known, so Register scans it.
func defineTypes(ctx context.Context, m *manager.Manager, settings *config.Config) error {
	types := settings.GetHash("types")
	namespaces := make([]string, 0, len(types))
	for namespace := range types {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)

	for _, namespace := range namespaces {
		defs, ok := types[namespace].(map[string]any)
		if !ok {
			return fmt.Errorf("types.%s must be a table of type to default provider", namespace)
		}
		names := make([]string, 0, len(defs))
		for typ := range defs {
			names = append(names, typ)
		}
		sort.Strings(names)
		for _, typ := range names {
			if err := m.DefineType(ctx, namespace, typ, config.String(defs[typ])); err != nil {
				return fmt.Errorf("defining %s type %s: %w", namespace, typ, err)
			}
		}
	}
	return nil
}

// pluginPaths returns the configured base paths. String entries may hold
// several paths joined by the OS list separator.
func pluginPaths(settings *config.Config) []string {
	var paths []string
	for _, item := range settings.GetArray("plugin_path") {
		for _, p := range filepath.SplitList(config.String(item)) {
			if p != "" {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

func newLogger(w io.Writer, settings *config.Config) (*slog.Logger, error) {
	var level slog.Level
	switch settings.GetString([]string{"log", "level"}, "warn") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", settings.GetString([]string{"log", "level"}, ""))
	}

	opts := &slog.HandlerOptions{Level: level}
	switch format := settings.GetString([]string{"log", "format"}, "text"); format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}
