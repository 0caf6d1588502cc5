package core

import (
	"context"
	"strings"
	"sync"
)

// Handler is the contract every specialist component satisfies (§4.1). The
// orchestrator never knows a handler's concrete type; it only ever calls
// through this interface. Individual domain handlers (triage, diagnostics,
// imaging, drug lookups, appointments, ...) are external collaborators that
// implement Handler — their bodies are out of scope for this module.
type Handler interface {
	// Name returns the stable lowercase identifier this handler is
	// registered under.
	Name() string

	// Description returns a human-readable summary of the handler's
	// purpose.
	Description() string

	// Capabilities returns the keywords the classifier indexes this
	// handler under.
	Capabilities() []string

	// ConfidenceThreshold returns the minimum confidence at which this
	// handler's outputs should be considered reliable. The orchestrator
	// does not hide low-confidence outputs; the classifier may use this
	// to decline selecting a handler whose only match falls below it.
	ConfidenceThreshold() float64

	// Enabled reports whether the handler currently accepts dispatch.
	Enabled() bool

	// SetEnabled toggles dispatch eligibility at runtime.
	SetEnabled(bool)

	// ValidateRequest reports whether req is structurally acceptable to
	// this handler. The default policy (see BaseHandler) is "non-empty
	// message".
	ValidateRequest(req Request) bool

	// Process runs the handler's domain logic and returns its reply. May
	// block on I/O; the orchestrator awaits it under a deadline (§5).
	Process(ctx context.Context, req Request) (HandlerReply, error)
}

// BaseHandler provides the enabled/disabled bookkeeping and default request
// validation most Handler implementations share, following the embedding
// convention domain handlers use to satisfy Handler without re-implementing
// the bookkeeping.
type BaseHandler struct {
	mu      sync.RWMutex
	name    string
	enabled bool
}

// NewBaseHandler constructs a BaseHandler, enabled by default.
func NewBaseHandler(name string) BaseHandler {
	return BaseHandler{name: name, enabled: true}
}

func (b *BaseHandler) Name() string { return b.name }

func (b *BaseHandler) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

func (b *BaseHandler) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// ValidateRequest implements the default "non-empty message" policy (§4.1).
func (b *BaseHandler) ValidateRequest(req Request) bool {
	return strings.TrimSpace(req.Message) != ""
}

// Registry is a process-wide mapping from handler name to Handler,
// populated once at startup and optionally mutated at runtime via
// Register/Unregister/SetEnabled (§4.1, §5). Per the design notes (§9) this
// is owned by a single Orchestrator value rather than a global singleton;
// it is the only pipeline component whose state mutates after construction
// and so owns its own synchronization.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   Logger
}

// NewRegistry constructs an empty registry. A nil logger is replaced with a
// no-op logger.
func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Registry{handlers: make(map[string]Handler), logger: logger}
}

// Register adds a handler under its own Name(). A duplicate name
// overwrites the previous registration with a warning (§4.1).
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[h.Name()]; exists {
		r.logger.Warn("overwriting existing handler registration", "handler", h.Name())
	}
	r.handlers[h.Name()] = h
}

// Unregister removes a handler by name. A no-op if the name is unknown.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Get returns the handler registered under name, or (nil, false) if
// unknown. Callers must handle absence without crashing (§4.1).
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// ListAll returns every registered handler, enabled or not.
func (r *Registry) ListAll() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	return out
}

// ListEnabled returns only the handlers currently accepting dispatch.
func (r *Registry) ListEnabled() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		if h.Enabled() {
			out = append(out, h)
		}
	}
	return out
}

// FindByCapability returns enabled handlers whose Capabilities() contains
// keyword, case-insensitively (§4.1).
func (r *Registry) FindByCapability(keyword string) []Handler {
	needle := strings.ToLower(keyword)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Handler
	for _, h := range r.handlers {
		if !h.Enabled() {
			continue
		}
		for _, cap := range h.Capabilities() {
			if strings.ToLower(cap) == needle {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// Len returns the number of registered handlers, enabled or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
