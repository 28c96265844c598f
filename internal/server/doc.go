// Package server exposes the simulated host over HTTP.
//
// Every handler that touches the façade or the extension manager hops onto
// the host's main thread with Host.Call; gin's goroutines never call into
// them directly.
package server
