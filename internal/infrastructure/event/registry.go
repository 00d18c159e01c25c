package event

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/erp/reversecharge/internal/domain/shared"
)

// routeTable maps event types to handlers. A published table is never mutated.
type routeTable struct {
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

func (t *routeTable) clone() *routeTable {
	next := &routeTable{
		byType:   make(map[string][]shared.EventHandler, len(t.byType)),
		wildcard: slices.Clone(t.wildcard),
	}
	for eventType, handlers := range t.byType {
		next.byType[eventType] = slices.Clone(handlers)
	}
	return next
}

// HandlerRegistry routes event types to handlers.
// Lookups read a snapshot without locking; Register and Unregister publish a new table.
type HandlerRegistry struct {
	mu     sync.Mutex
	routes atomic.Pointer[routeTable]
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{}
	r.routes.Store(&routeTable{byType: make(map[string][]shared.EventHandler)})
	return r
}

func (r *HandlerRegistry) update(change func(*routeTable)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.routes.Load().clone()
	change(next)
	r.routes.Store(next)
}

// Register routes eventTypes to handler, or every event when none are given.
// Registering the same handler twice for a route is a no-op.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.update(func(t *routeTable) {
		if len(eventTypes) == 0 {
			t.wildcard = appendUnique(t.wildcard, handler)
			return
		}
		for _, eventType := range eventTypes {
			t.byType[eventType] = appendUnique(t.byType[eventType], handler)
		}
	})
}

// Unregister removes handler from every route
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.update(func(t *routeTable) {
		t.wildcard = slices.DeleteFunc(t.wildcard, func(h shared.EventHandler) bool { return h == handler })
		for eventType, handlers := range t.byType {
			handlers = slices.DeleteFunc(handlers, func(h shared.EventHandler) bool { return h == handler })
			if len(handlers) == 0 {
				delete(t.byType, eventType)
				continue
			}
			t.byType[eventType] = handlers
		}
	})
}

// GetHandlers returns the handlers routed to eventType, then the wildcard handlers
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	t := r.routes.Load()
	return slices.Concat(t.byType[eventType], t.wildcard)
}

// EventTypes returns the event types with a dedicated route, sorted
func (r *HandlerRegistry) EventTypes() []string {
	return slices.Sorted(maps.Keys(r.routes.Load().byType))
}

// Len returns the number of distinct registered handlers
func (r *HandlerRegistry) Len() int {
	t := r.routes.Load()
	seen := make(map[shared.EventHandler]struct{})
	for _, handler := range t.wildcard {
		seen[handler] = struct{}{}
	}
	for _, handlers := range t.byType {
		for _, handler := range handlers {
			seen[handler] = struct{}{}
		}
	}
	return len(seen)
}

func appendUnique(handlers []shared.EventHandler, handler shared.EventHandler) []shared.EventHandler {
	if slices.Contains(handlers, handler) {
		return handlers
	}
	return append(handlers, handler)
}
