package tp

import (
	"sync"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/arena"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

// Key is the AssemblerMapping entry key from spec.md §3: "(InstanceId,
// ServiceId, MethodId, ClientId, InterfaceVersion, MessageType∖TP-flag,
// PeerIpAddress, PeerPort)". PeerAddr/PeerPort are opaque strings/ints here
// since this daemon's transport is a local Unix socket, not an IP peer;
// passing the connection id in their place preserves per-flow uniqueness
// without inventing an IP address this daemon does not have.
type Key struct {
	InstanceID  uint16
	ServiceID   uint16
	MethodID    uint16
	ClientID    uint16
	MajorVer    uint8
	MessageType message.MessageType // always stored with the TP bit cleared
	ConnectionID uint32
}

// ConfigKey identifies one entry in the static AssemblerMapping
// configuration table (spec.md §4.5: "(ServiceId, MajorVersion, MethodId,
// MessageType) → (max_message_size, use_deterministic_allocator)").
type ConfigKey struct {
	ServiceID   uint16
	MajorVer    uint8
	MethodID    uint16
	MessageType message.MessageType
}

// ConfigEntry is the configured policy for one ConfigKey.
type ConfigEntry struct {
	MaxMessageSize      uint32
	UseDeterministic bool
}

// Mapping is AssemblerMapping (spec.md §4.5): a static configuration table
// plus the live per-flow Assembler instances it lazily creates.
type Mapping struct {
	config  map[ConfigKey]ConfigEntry
	arena   *arena.Arena // shared by every deterministic-policy assembler
	metrics metrics.BindingMetrics

	mu         sync.Mutex
	assemblers map[Key]*Assembler
}

// NewMapping creates a Mapping from its static configuration table and the
// shared deterministic arena (may be nil if no configured entry uses the
// deterministic policy). m may be nil, disabling metrics collection.
func NewMapping(config map[ConfigKey]ConfigEntry, sharedArena *arena.Arena, m metrics.BindingMetrics) *Mapping {
	return &Mapping{config: config, arena: sharedArena, metrics: m, assemblers: make(map[Key]*Assembler)}
}

// RequiresAssembly reports whether hdr's MessageType carries the TP bit. If
// it does not, but a partial assembler already exists for the same logical
// key, that partial is canceled (spec.md §4.5: "a fresh non-segmented
// message of the same logical identity invalidates any in-progress
// reassembly", and I-TP-cancel-on-nontp).
func (m *Mapping) RequiresAssembly(connectionID uint32, instanceID uint16, hdr message.RequestHeader, messageType message.MessageType) bool {
	if messageType.IsTP() {
		return true
	}
	key := Key{
		InstanceID:   instanceID,
		ServiceID:    hdr.ServiceID,
		MethodID:     hdr.MethodID,
		ClientID:     hdr.ClientID,
		MajorVer:     hdr.MajorVer,
		MessageType:  messageType.WithoutTP(),
		ConnectionID: connectionID,
	}
	m.mu.Lock()
	a, exists := m.assemblers[key]
	if exists {
		delete(m.assemblers, key)
	}
	m.mu.Unlock()
	if exists {
		a.Cancel()
	}
	return false
}

// GetAssembler looks up (or lazily creates) the Assembler for key. Returns
// (nil, false) if no assembler exists yet and the header's
// (ServiceID/MajorVer/MethodID/MessageType) does not match any configured
// entry (spec.md §4.5: "Unconfigured keys are rejected").
func (m *Mapping) GetAssembler(key Key) (*Assembler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, exists := m.assemblers[key]; exists {
		return a, true
	}

	cfgKey := ConfigKey{ServiceID: key.ServiceID, MajorVer: key.MajorVer, MethodID: key.MethodID, MessageType: key.MessageType}
	entry, ok := m.config[cfgKey]
	if !ok {
		return nil, false
	}

	var pool *arena.Arena
	if entry.UseDeterministic {
		pool = m.arena
	}
	a := newAssembler(entry.MaxMessageSize, pool, m.metrics)
	m.assemblers[key] = a
	return a, true
}

// Complete removes key's assembler from the live set once reassembly has
// finished (Accept having returned Complete) or the caller has otherwise
// retired it.
func (m *Mapping) Complete(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assemblers, key)
}

// Len reports the number of in-progress assemblers. Test/diagnostic helper.
func (m *Mapping) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.assemblers)
}
