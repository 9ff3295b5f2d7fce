// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/model"
)

// FailureMarker replaces the reply when a generation fails.
const FailureMarker = "❌ Request failed. Try again."

// DefaultImageMarker is the phrase in a reply that offers an image.
const DefaultImageMarker = "generate an image"

// Errors returned by Manager operations.
var (
	ErrBusy                 = errors.New("another request is already in progress")
	ErrEmptyPrompt          = errors.New("prompt is empty")
	ErrEmptyTitle           = errors.New("title is empty")
	ErrUnknownConversation  = errors.New("conversation not found")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrNoAssistantMessage   = errors.New("last message is not a generated reply")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the part of the API client the manager uses.
type Backend interface {
	ListPosts(ctx context.Context) ([]api.Post, error)
	RenamePost(ctx context.Context, id, title string) error
	SavePostMessages(ctx context.Context, id, messages string) error
	DeletePost(ctx context.Context, id string) error
	GenerateStream(ctx context.Context, in api.GenerateRequest) (*api.Stream, error)
	GenerateFast(ctx context.Context, in api.FastRequest) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Me(ctx context.Context) (*api.UserInfo, error)
}

// Cache keeps the last list for offline browsing.
type Cache interface {
	Replace(convs []*model.Conversation) error
	List() ([]*model.Conversation, error)
}

// Options configures a Manager.
type Options struct {
	// Cache is optional.
	Cache Cache
	// ImageMarker overrides DefaultImageMarker.
	ImageMarker string
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind classifies manager events.
type EventKind int

const (
	// EventChanged means Snapshot would return something new.
	EventChanged EventKind = iota
	// EventAlert carries a message the user should see.
	EventAlert
	// EventRedirect asks the view to switch to another screen.
	EventRedirect
)

// Route names a redirect target.
type Route string

const (
	RoutePricing Route = "pricing"
	RouteLogin   Route = "login"
)

// Event is delivered to subscribers.
type Event struct {
	Kind    EventKind
	Message string
	Route   Route
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a deep copy of the manager state.
type Snapshot struct {
	History       []*model.Conversation
	Active        *model.Conversation
	Prompt        string
	Loading       bool
	Deleting      bool
	PendingDelete string
	ImageOffered  bool
	Account       api.UserInfo
	// Stale is set while History comes from the offline cache.
	Stale bool
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the conversation session state.
type Manager struct {
	mu sync.Mutex

	backend     Backend
	cache       Cache
	imageMarker string
	log         zerolog.Logger

	history       []*model.Conversation
	active        *model.Conversation
	prompt        string
	loading       bool
	deleting      bool
	pendingDelete string
	imageOffered  bool
	account       api.UserInfo
	stale         bool

	listeners map[uint64]func(Event)
	nextID    uint64
}

// NewManager returns a Manager with an empty history and no active
// conversation.
func NewManager(backend Backend, opts Options) *Manager {
	m := &Manager{
		backend:     backend,
		cache:       opts.Cache,
		imageMarker: opts.ImageMarker,
		log:         log.Logger,
		history:     []*model.Conversation{},
		listeners:   make(map[uint64]func(Event)),
	}
	if m.imageMarker == "" {
		m.imageMarker = DefaultImageMarker
	}
	if opts.Logger != nil {
		m.log = *opts.Logger
	}
	return m
}

// Subscribe registers fn for events and returns a function removing it.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// emit delivers ev to every listener. Must be called without m.mu held.
func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	fns := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Manager) changed() {
	m.emit(Event{Kind: EventChanged})
}

func (m *Manager) alert(msg string) {
	m.emit(Event{Kind: EventAlert, Message: msg})
}

func (m *Manager) redirect(route Route, msg string) {
	m.emit(Event{Kind: EventRedirect, Route: route, Message: msg})
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	hist := make([]*model.Conversation, len(m.history))
	for i, c := range m.history {
		hist[i] = c.Clone()
	}
	acct := m.account
	if acct.CreditRemaining != nil {
		n := *acct.CreditRemaining
		acct.CreditRemaining = &n
	}
	return Snapshot{
		History:       hist,
		Active:        m.active.Clone(),
		Prompt:        m.prompt,
		Loading:       m.loading,
		Deleting:      m.deleting,
		PendingDelete: m.pendingDelete,
		ImageOffered:  m.imageOffered,
		Account:       acct,
		Stale:         m.stale,
	}
}

// Active returns a copy of the active conversation, or nil.
func (m *Manager) Active() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Clone()
}

// Loading reports whether a generation is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Prompt returns the pending prompt input.
func (m *Manager) Prompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompt
}

// SetPrompt replaces the pending prompt input.
func (m *Manager) SetPrompt(s string) {
	m.mu.Lock()
	m.prompt = s
	m.mu.Unlock()
}

// RefreshAccount reloads plan and credit information.
func (m *Manager) RefreshAccount(ctx context.Context) error {
	info, err := m.backend.Me(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to refresh account info")
		return err
	}
	m.mu.Lock()
	m.account = *info
	m.mu.Unlock()
	m.changed()
	return nil
}

// finishLoading clears the in-flight flag.
func (m *Manager) finishLoading() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
	m.changed()
}

// findLocked returns the history entry with id. Callers hold m.mu.
func (m *Manager) findLocked(id string) (int, *model.Conversation) {
	for i, c := range m.history {
		if c.Ref.Is(id) {
			return i, c
		}
	}
	return -1, nil
}
