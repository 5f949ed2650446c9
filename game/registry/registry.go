// Package registry maps client names to their live connections.
//
// A name is bound to at most one connection and a connection to at most one
// name. One distinguished name, the viewer, receives a roster notice every
// time the set of other registered names changes. The registry never looks at
// game sessions: sessions refer to clients by name only.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/chess-referee/protocol"
)

var (
	ErrAlreadyRegistered = errors.New("name already registered")
	ErrConnectionBound   = errors.New("connection already registered under another name")
	ErrInvalidName       = errors.New("invalid name")
)

// MaxNameLength bounds registered names.
const MaxNameLength = 64

// Client describes one registered connection.
type Client struct {
	Name         string    `json:"name"`
	ConnID       string    `json:"conn_id"`
	Viewer       bool      `json:"viewer"`
	RegisteredAt time.Time `json:"registered_at"`
}

type entry struct {
	conn  protocol.Connection
	since time.Time
}

// Registry is the name <-> connection map. It is safe for concurrent use.
type Registry struct {
	viewer string
	byName map[string]entry
	byConn map[string]string
	logger *slog.Logger
	mu     sync.RWMutex
}

// New creates a registry whose privileged client is called viewer.
func New(viewer string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		viewer: viewer,
		byName: make(map[string]entry),
		byConn: make(map[string]string),
		logger: logger,
	}
}

// ValidateName checks a requested name before it is bound.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	case name == protocol.Draw:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

// Register binds name to conn. On success the client gets an acknowledgement
// and the viewer, if present, gets the updated roster.
func (r *Registry) Register(name string, conn protocol.Connection) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return ErrAlreadyRegistered
	}
	if bound, exists := r.byConn[conn.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrConnectionBound, bound)
	}

	r.byName[name] = entry{conn: conn, since: time.Now()}
	r.byConn[conn.ID()] = name

	r.logger.Info("client registered", "client", name, "conn", conn.ID(), "viewer", name == r.viewer)

	r.send(name, conn, protocol.Registered{Registered: name})
	r.notifyRosterLocked()
	return nil
}

// Unregister removes whatever name is bound to conn. It is a no-op when conn
// was never registered or was already removed.
func (r *Registry) Unregister(conn protocol.Connection) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, exists := r.byConn[conn.ID()]
	if !exists {
		return "", false
	}

	delete(r.byConn, conn.ID())
	delete(r.byName, name)

	r.logger.Info("client unregistered", "client", name, "conn", conn.ID())

	if name != r.viewer {
		r.notifyRosterLocked()
	}
	return name, true
}

// LookupConnection returns the connection bound to name.
func (r *Registry) LookupConnection(name string) (protocol.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.byName[name]
	if !exists {
		return nil, false
	}
	return e.conn, true
}

// LookupName returns the name bound to conn.
func (r *Registry) LookupName(conn protocol.Connection) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, exists := r.byConn[conn.ID()]
	return name, exists
}

// Registered reports whether name is currently bound.
func (r *Registry) Registered(name string) bool {
	_, ok := r.LookupConnection(name)
	return ok
}

// Viewer returns the configured viewer name.
func (r *Registry) Viewer() string {
	return r.viewer
}

// IsViewer reports whether name is the viewer.
func (r *Registry) IsViewer(name string) bool {
	return name == r.viewer
}

// Names returns the registered non-viewer names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Clients returns a snapshot of every registration, viewer included.
func (r *Registry) Clients() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]Client, 0, len(r.byName))
	for name, e := range r.byName {
		clients = append(clients, Client{
			Name:         name,
			ConnID:       e.conn.ID(),
			Viewer:       name == r.viewer,
			RegisteredAt: e.since,
		})
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].Name < clients[j].Name
	})
	return clients
}

// Count returns the number of registered clients, viewer included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		if name != r.viewer {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// notifyRosterLocked sends the current roster to the viewer. Caller holds r.mu.
func (r *Registry) notifyRosterLocked() {
	e, exists := r.byName[r.viewer]
	if !exists {
		return
	}
	r.send(r.viewer, e.conn, protocol.Roster{Names: r.namesLocked()})
}

func (r *Registry) send(name string, conn protocol.Connection, msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		r.logger.Error("encode failed", "client", name, "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		r.logger.Warn("send failed", "client", name, "conn", conn.ID(), "error", err)
	}
}
