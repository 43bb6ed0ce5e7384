package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sagaline/sagaline/pkg/saga"
)

// UnknownCommandError is returned when a command name was never registered
// for the saga type. It is distinguishable from a state-machine rejection:
// the name is outside the derived vocabulary, not wrong for the current
// phase.
type UnknownCommandError struct {
	Saga    string
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("runtime: command %q is not registered for saga %q", e.Command, e.Saga)
}

type routeKey struct {
	saga    string
	command string
}

type route struct {
	kind saga.CommandKind
	step string
}

// Router is the explicit dispatch table from derived command names to hosted
// saga types. Every route is registered up front from a catalog; nothing is
// discovered through a global registry or by inspecting name patterns at
// dispatch time.
type Router struct {
	mu         sync.RWMutex
	dispatcher *Dispatcher
	routes     map[routeKey]route
}

// NewRouter creates a router over the given dispatcher with no routes.
func NewRouter(dispatcher *Dispatcher) *Router {
	return &Router{
		dispatcher: dispatcher,
		routes:     make(map[routeKey]route),
	}
}

// RegisterCatalog registers the full derived command vocabulary of one
// catalog. Registering the same saga type twice is an error.
func (r *Router) RegisterCatalog(catalog *saga.Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sagaName := catalog.Name()
	for _, name := range catalog.CommandNames() {
		key := routeKey{saga: sagaName, command: name}
		if _, exists := r.routes[key]; exists {
			return fmt.Errorf("runtime: command %q already registered for saga %q", name, sagaName)
		}
		kind, step, ok := catalog.ResolveCommand(name)
		if !ok {
			return fmt.Errorf("runtime: catalog %q does not resolve its own command %q", sagaName, name)
		}
		r.routes[key] = route{kind: kind, step: step}
	}
	return nil
}

// Resolve reports the command kind and step a registered name routes to.
func (r *Router) Resolve(sagaName, commandName string) (saga.CommandKind, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[routeKey{saga: sagaName, command: commandName}]
	if !ok {
		return 0, "", false
	}
	return rt.kind, rt.step, true
}

// CommandNames returns the registered command names of one saga type in
// deterministic order.
func (r *Router) CommandNames(sagaName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0)
	for key := range r.routes {
		if key.saga == sagaName {
			names = append(names, key.command)
		}
	}
	sort.Strings(names)
	return names
}

// Dispatch routes a named command to its saga instance. Unregistered names
// fail with *UnknownCommandError before any state is touched.
func (r *Router) Dispatch(ctx context.Context, sagaName, commandName, sagaID string, data map[string]any) (*DispatchResult, error) {
	kind, step, ok := r.Resolve(sagaName, commandName)
	if !ok {
		return nil, &UnknownCommandError{Saga: sagaName, Command: commandName}
	}

	var cmd saga.Command
	switch kind {
	case saga.CommandStart:
		cmd = saga.NewStartCommand(sagaID, data)
	case saga.CommandFinish:
		cmd = saga.NewFinishCommand(sagaID, step, data)
	case saga.CommandFail:
		cmd = saga.NewFailCommand(sagaID, step)
	case saga.CommandFinishCompensation:
		cmd = saga.NewFinishCompensationCommand(sagaID, step)
	default:
		return nil, fmt.Errorf("runtime: unsupported command kind %v", kind)
	}

	return r.dispatcher.Dispatch(ctx, sagaName, cmd)
}
