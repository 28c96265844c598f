package lua

import (
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/reaper"
)

// ModuleName is the name scripts use for the façade module.
const ModuleName = "reaper"

// Facade is the part of the façade exposed to scripts.
// *reaper.Reaper satisfies it.
type Facade interface {
	RegisterAction(name, description string, op func(), kind reaper.ActionKind, opts ...reaper.ActionOption) (*reaper.RegisteredAction, error)
	ShowConsoleMsg(msg string)
	Undoable(project host.Project, label string, fn func())
	LastActionValueChange(id host.CommandID) (host.ActionValueChange, bool)
	DoInMainThreadAsap(task func()) error
}

// Module binds a State to a Facade and tracks the actions its script
// registered.
type Module struct {
	state   *State
	facade  Facade
	logger  *zap.Logger
	keys    map[string]host.Accel
	actions map[string]*reaper.RegisteredAction
}

// ModuleOption configures a Module.
type ModuleOption func(*Module)

// WithLogger sets the logger for handler failures.
func WithLogger(l *zap.Logger) ModuleOption {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDefaultKeys sets shortcuts used when register_action has no key field.
func WithDefaultKeys(keys map[string]host.Accel) ModuleOption {
	return func(m *Module) {
		m.keys = keys
	}
}

// NewModule creates a module and installs it into state as the global
// "reaper", also loadable with require("reaper"). print is redirected to
// the console.
func NewModule(state *State, facade Facade, opts ...ModuleOption) *Module {
	m := &Module{
		state:   state,
		facade:  facade,
		logger:  zap.NewNop(),
		actions: make(map[string]*reaper.RegisteredAction),
	}
	for _, opt := range opts {
		opt(m)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.closed {
		return m
	}
	L := state.L
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register_action":   m.registerAction,
		"unregister_action": m.unregisterAction,
		"command_id":        m.commandID,
		"show_console_msg":  m.showConsoleMsg,
		"undoable":          m.undoable,
		"last_value":        m.lastValue,
		"defer_main":        m.deferMain,
	})
	L.SetGlobal(ModuleName, mod)
	L.PreloadModule(ModuleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
	L.SetGlobal("print", L.NewFunction(m.print))
	return m
}

// Actions returns the names of the actions the script registered, sorted.
func (m *Module) Actions() []string {
	names := make([]string, 0, len(m.actions))
	for name := range m.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandID returns the command id of a registered action.
func (m *Module) CommandID(name string) (host.CommandID, bool) {
	h, ok := m.actions[name]
	if !ok {
		return 0, false
	}
	return h.CommandID(), true
}

// UnregisterAll unregisters every action the script registered.
func (m *Module) UnregisterAll() error {
	var errs error
	for _, name := range m.Actions() {
		errs = multierr.Append(errs, m.actions[name].Unregister())
		delete(m.actions, name)
	}
	return errs
}

// reaper.register_action{name=, description=, handler=, toggle=, key=}
func (m *Module) registerAction(L *lua.LState) int {
	opts := L.CheckTable(1)

	name := lua.LVAsString(opts.RawGetString("name"))
	if name == "" {
		L.ArgError(1, "name is required")
		return 0
	}
	handler, ok := opts.RawGetString("handler").(*lua.LFunction)
	if !ok {
		L.ArgError(1, "handler must be a function")
		return 0
	}
	description := lua.LVAsString(opts.RawGetString("description"))
	if description == "" {
		description = name
	}

	kind := reaper.NotToggleable
	if v := opts.RawGetString("toggle"); v != lua.LNil {
		fn, ok := v.(*lua.LFunction)
		if !ok {
			L.ArgError(1, "toggle must be a function")
			return 0
		}
		kind = reaper.Toggleable(m.predicate(name, fn))
	}

	var actionOpts []reaper.ActionOption
	if v := opts.RawGetString("key"); v != lua.LNil {
		accel, err := host.ParseAccel(lua.LVAsString(v))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		actionOpts = append(actionOpts, reaper.WithKeyBinding(accel))
	} else if accel, ok := m.keys[name]; ok {
		actionOpts = append(actionOpts, reaper.WithKeyBinding(accel))
	}

	h, err := m.facade.RegisterAction(name, description, m.operation(name, handler), kind, actionOpts...)
	if h != nil {
		m.actions[name] = h
	}
	if err != nil {
		L.RaiseError("register_action %q: %v", name, err)
		return 0
	}
	L.Push(lua.LNumber(h.CommandID()))
	return 1
}

func (m *Module) operation(name string, fn *lua.LFunction) func() {
	return func() {
		if _, err := m.state.CallFunction(fn); err != nil {
			m.logger.Error("action handler failed", zap.String("action", name), zap.Error(err))
		}
	}
}

func (m *Module) predicate(name string, fn *lua.LFunction) func() bool {
	return func() bool {
		results, err := m.state.CallFunction(fn)
		if err != nil {
			m.logger.Error("toggle state failed", zap.String("action", name), zap.Error(err))
			return false
		}
		return len(results) > 0 && lua.LVAsBool(results[0])
	}
}

// reaper.unregister_action(name) -> bool
func (m *Module) unregisterAction(L *lua.LState) int {
	name := L.CheckString(1)
	h, ok := m.actions[name]
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	delete(m.actions, name)
	if err := h.Unregister(); err != nil {
		m.logger.Warn("unregister action", zap.String("action", name), zap.Error(err))
	}
	L.Push(lua.LTrue)
	return 1
}

// reaper.command_id(name) -> number | nil
func (m *Module) commandID(L *lua.LState) int {
	id, ok := m.CommandID(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

// reaper.show_console_msg(msg)
func (m *Module) showConsoleMsg(L *lua.LState) int {
	m.facade.ShowConsoleMsg(L.CheckString(1))
	return 0
}

// reaper.undoable(label, fn)
func (m *Module) undoable(L *lua.LState) int {
	label := L.CheckString(1)
	fn := L.CheckFunction(2)

	var callErr error
	m.facade.Undoable(host.CurrentProject, label, func() {
		callErr = L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	})
	if callErr != nil {
		L.RaiseError("%s", callErr.Error())
	}
	return 0
}

// reaper.last_value(name) -> {kind=, value=} | nil
func (m *Module) lastValue(L *lua.LState) int {
	id, ok := m.CommandID(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	change, ok := m.facade.LastActionValueChange(id)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	t.RawSetString("kind", lua.LString(change.Kind.String()))
	t.RawSetString("value", lua.LNumber(change.Value))
	L.Push(t)
	return 1
}

// reaper.defer_main(fn) -> true | nil, err
func (m *Module) deferMain(L *lua.LState) int {
	fn := L.CheckFunction(1)
	err := m.facade.DoInMainThreadAsap(func() {
		if _, err := m.state.CallFunction(fn); err != nil {
			m.logger.Debug("deferred call failed", zap.Error(err))
		}
	})
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *Module) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	m.facade.ShowConsoleMsg(strings.Join(parts, "\t") + "\n")
	return 0
}
