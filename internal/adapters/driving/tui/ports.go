package tui

import "github.com/bruncanepa/murmur-brain/internal/core/ports/driving"

// Ports groups the driving ports the TUI depends on.
type Ports struct {
	Chat     driving.ChatService
	Document driving.DocumentService
}
