package device

import (
	"sort"
	"sync"
	"time"

	"github.com/ewanmcc/lumen-core/internal/protocol"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry owns every device known to this client. Devices enter
// through Upsert (live enumeration) or Restore (persisted snapshots)
// and are never removed; they persist for the life of the client.
//
// The registry holds the only mutable copies. All reads hand out
// clones, and all mutation happens inside registry methods under the
// lock, so a push-driven update and a command-driven update can never
// race on the same device.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	catalog *Catalog
	logger  Logger
}

// NewRegistry creates a registry that builds unknown devices through
// the given catalog.
func NewRegistry(catalog *Catalog) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		catalog: catalog,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Upsert reconciles one enumeration record. A known identifier only
// has its display name refreshed; everything else about a device is
// fixed at discovery. An unknown identifier goes through the catalog:
// recognized products are inserted and returned with created=true,
// unrecognized ones are skipped and return nil.
func (r *Registry) Upsert(d Descriptor) (dev *Device, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.devices[d.Identifier]; ok {
		existing.Name = d.Name
		return existing.Clone(), false
	}

	built := r.catalog.Build(d)
	if built == nil {
		r.logger.Debug("unsupported product skipped",
			"identifier", d.Identifier,
			"product_code", d.ProductCode,
		)
		return nil, false
	}

	r.devices[built.Identifier] = built
	r.logger.Info("device discovered",
		"identifier", built.Identifier,
		"product_code", built.ProductCode,
		"name", built.Name,
		"capabilities", built.Capabilities.String(),
	)
	return built.Clone(), true
}

// Restore seeds the registry with previously persisted devices,
// skipping identifiers that are already present. Connection status is
// runtime truth and is not restored; every seeded device starts
// offline. Returns how many devices were added.
func (r *Registry) Restore(devices []Device) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for i := range devices {
		d := devices[i]
		if _, ok := r.devices[d.Identifier]; ok {
			continue
		}
		d.Status = ConnectionStatus{}
		r.devices[d.Identifier] = d.Clone()
		added++
	}

	if added > 0 {
		r.logger.Info("devices restored from snapshot", "count", added)
	}
	return added
}

// Get returns a clone of the device, or ok=false when the identifier
// is unknown.
func (r *Registry) Get(identifier string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[identifier]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// List returns clones of all devices, ordered by identifier for
// deterministic iteration.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// ApplyState merges a decoded push into its device, including the
// broker reachability claim the push carries. Returns a clone of the
// device after the merge, or ok=false when the identifier is unknown.
func (r *Registry) ApplyState(identifier string, update protocol.StateUpdate) (dev *Device, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, found := r.devices[identifier]
	if !found {
		return nil, false
	}

	d.applyState(update, time.Now().UTC())
	return d.Clone(), true
}

// SetBrokerConnected moves one device's broker flag. Returns a clone
// and whether the observable status changed; unknown identifiers
// return ok semantics through a nil device.
func (r *Registry) SetBrokerConnected(identifier string, connected bool) (dev *Device, changed bool) {
	return r.setFlag(identifier, connected, (*ConnectionStatus).SetBroker)
}

// SetRadioConnected moves one device's radio flag. Returns a clone and
// whether the observable status changed.
func (r *Registry) SetRadioConnected(identifier string, connected bool) (dev *Device, changed bool) {
	return r.setFlag(identifier, connected, (*ConnectionStatus).SetRadio)
}

func (r *Registry) setFlag(identifier string, connected bool, set func(*ConnectionStatus, bool) bool) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[identifier]
	if !ok {
		return nil, false
	}

	changed := set(&d.Status, connected)
	return d.Clone(), changed
}

// ClearBrokerConnected drops the broker flag on every device, returning
// clones of only those whose status actually changed. A session reset
// invalidates all broker reachability at once; callers emit one update
// event per returned device.
func (r *Registry) ClearBrokerConnected() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []*Device
	for _, d := range r.devices {
		if d.Status.SetBroker(false) {
			changed = append(changed, d.Clone())
		}
	}

	sort.Slice(changed, func(i, j int) bool { return changed[i].Identifier < changed[j].Identifier })
	return changed
}
