// Package lua runs extension scripts in sandboxed gopher-lua states and
// exposes the façade to them as the "reaper" module.
//
// A script registers actions and reacts to them:
//
//	local count = 0
//	reaper.register_action{
//	  name = "hello-world",
//	  description = "Say hello",
//	  key = "Ctrl+Shift+H",
//	  handler = function()
//	    count = count + 1
//	    reaper.show_console_msg("hello #" .. count .. "\n")
//	  end,
//	}
//
// Every call into Lua happens on the host's main thread and is bounded by the
// state's execution timeout.
//
// Module functions:
//
//	reaper.register_action{name, description, handler, toggle, key} -> command id
//	reaper.unregister_action(name) -> bool
//	reaper.command_id(name) -> command id or nil
//	reaper.show_console_msg(msg)
//	reaper.undoable(label, fn)
//	reaper.last_value(name) -> {kind, value} or nil
//	reaper.defer_main(fn) -> true or nil, err
package lua
