package config

import (
	"github.com/marmos91/ara-ipcbinding/internal/ipc/arena"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/tp"
)

// AssemblerTable converts the configured TP method list into the
// map[tp.ConfigKey]tp.ConfigEntry that tp.NewMapping expects.
func (c TPConfig) AssemblerTable() map[tp.ConfigKey]tp.ConfigEntry {
	table := make(map[tp.ConfigKey]tp.ConfigEntry, len(c.Methods))
	for _, m := range c.Methods {
		key := tp.ConfigKey{
			ServiceID:   m.ServiceID,
			MajorVer:    m.MajorVer,
			MethodID:    m.MethodID,
			MessageType: message.MessageType(m.MessageType),
		}
		table[key] = tp.ConfigEntry{
			MaxMessageSize:   m.MaxMessageSize,
			UseDeterministic: m.UseDeterministic,
		}
	}
	return table
}

// SharedArena builds the monotonic arena shared by every deterministic
// assembler, or nil when no deterministic buffer was configured.
func (c TPConfig) SharedArena() *arena.Arena {
	if c.DeterministicBufferSize == 0 {
		return nil
	}
	return arena.New(int(c.DeterministicBufferSize))
}
