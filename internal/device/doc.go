// Package device provides the device model and registry for Lumen Core.
//
// The registry is the single authoritative view of every light known to
// a running client. It owns device identity, capabilities and last
// reported state, and it is the only place connection flags are
// flipped.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                         Device Registry                          │
//	│                                                                  │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────────┐  │
//	│  │    Registry    │   │    Catalog     │   │    Repository    │  │
//	│  │ (registry.go)  │──▶│  (catalog.go)  │   │ (repository.go)  │  │
//	│  │                │   │                │   │                  │  │
//	│  │ • Upsert/Get   │   │ • Product match│   │ • SQLite upsert  │  │
//	│  │ • State merge  │   │ • Capabilities │   │ • Snapshot load  │  │
//	│  │ • Conn flags   │   │ • Skip unknown │   │ • No conn state  │  │
//	│  └────────────────┘   └────────────────┘   └──────────────────┘  │
//	│          ▲                                          ▲            │
//	└──────────│──────────────────────────────────────────│────────────┘
//	           │                                          │
//	┌──────────────────────┐                  ┌──────────────────────┐
//	│   Client Engine      │                  │   SQLite Database    │
//	│ • discovery upserts  │                  │ (device_snapshots)   │
//	│ • push state merges  │                  └──────────────────────┘
//	│ • dispatch reads     │
//	└──────────────────────┘
//
// # Key Types
//
//   - Device: a single light with identity, capabilities and last
//     reported state
//   - Descriptor: raw identity handed over by discovery before the
//     catalog has classified it
//   - Capability: bitmask of what a device can do (power, brightness,
//     color, color temperature)
//   - ConnectionStatus: independent broker and radio reachability flags
//   - Catalog: maps product codes to capability profiles; unknown
//     products build to nil and are skipped
//   - Registry: thread-safe in-memory store, all reads return clones
//   - Repository: snapshot persistence so restarts resume with known
//     names and capabilities
//
// # Usage
//
//	catalog := device.DefaultCatalog()
//	registry := device.NewRegistry(catalog)
//	registry.SetLogger(log)
//
//	// Seed from persisted snapshots, then register discoveries.
//	registry.Restore(snapshots)
//	dev, created := registry.Upsert(device.Descriptor{
//	    Identifier:  "AB:CD:12:34:56:78:9A:BC",
//	    ProductCode: "H6159",
//	    Name:        "Desk Strip",
//	    Topic:       "GD/123abc",
//	})
//
//	// Merge a decoded status push.
//	dev, ok := registry.ApplyState(update.Device, update)
//
// # State Merge Semantics
//
// Status pushes are partial. Power and brightness only move when a
// push reports them. Colour and colour temperature are mutually
// exclusive display modes, so every push settles both and entering one
// mode clears the other.
//
// Connection status is runtime truth: it is merged from pushes and
// transport events but never persisted. Restored devices start offline
// until a session or radio link says otherwise.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected
// by a read-write mutex and every returned *Device is a deep clone, so
// callers can never mutate shared state.
//
// # Related Documentation
//
//   - migrations/20260305_120000_device_snapshots.up.sql: snapshot schema
package device
