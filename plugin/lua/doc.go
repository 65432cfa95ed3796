// Package lua implements plugin providers written in Lua.
//
// A provider script is an ordinary Lua file placed under a plugin type's
// directory. The manager loads it with NewProvider and uses the returned
// Provider as the type's factory. Scripts may define these globals:
//
//	identity = { "name", "host" }           -- fields that fingerprint an instance
//
//	function translate(options)             -- rewrite creation options
//	  return options
//	end
//
//	function init(config)                   -- runs once per instance
//	  return { ready = true }               -- merged into the instance config
//	end
//
//	hooks = {}                              -- extension hooks
//	function hooks.greet(options, config)
//	  return "hello " .. options.name
//	end
//
// Each instance runs the script in its own State, with the global plugin
// set to the instance's metadata.
//
// # Sandbox
//
// States open only the base, package, table, string and math libraries.
// dofile, loadfile, load and loadstring are removed and require resolves
// only the nucleon module and the opened libraries. The nucleon module
// provides log(level, message) and time(). Capabilities add further
// functions:
//
//	state := lua.NewState(lua.WithCapabilities(lua.CapabilityEnv))
//	// nucleon.getenv("HOME") is now available
//
// Every execution is bound by the state's execution timeout.
package lua
