// Package extension discovers, loads and activates Lua extensions against
// the façade.
//
// An extension is either a directory holding an extension.yaml manifest and
// its main script (init.lua by default), a directory holding just init.lua,
// or a single name.lua file. Search paths are scanned in order and the first
// extension found with a given name wins.
//
// Activating an extension takes a guarded handle on the façade session, so
// the session is awake while at least one extension is active. A script may
// define global activate and deactivate functions, called on activation and
// deactivation respectively. Actions a script registers are unregistered when
// it is deactivated.
//
// Everything in this package must run on the host's main thread, except
// Manager.List and Watcher, which only read state or schedule work.
package extension
