// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/conversation"
	"github.com/jeranaias/scribe-tui/internal/model"
	"github.com/jeranaias/scribe-tui/internal/share"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

type mode int

const (
	modeChat mode = iota
	modeSidebar
	modeRename
	modeConfirmDelete
	modeShare
	modePlans
	modeHelp
)

// DeleteConfirmText is the question shown before a chat is deleted.
const DeleteConfirmText = "Are you sure you want to delete this chat? This action cannot be undone."

// EmptyHistoryText is shown when there are no saved chats.
const EmptyHistoryText = "No chat history. Start a new chat!"

// Config wires the dashboard to its collaborators.
type Config struct {
	Manager *conversation.Manager
	Theme   *styles.Theme

	// Plans loads the plan table for the pricing overlay. Optional.
	Plans func(ctx context.Context) (api.Plans, error)

	Copier *share.Copier
	Sharer *share.Sharer

	// ContentType preselects a content type by name.
	ContentType string
	// User is shown in the header.
	User string
	// Fast uses the non-streaming endpoint.
	Fast bool
}

// Model is the dashboard model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	mgr      *conversation.Manager
	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	plansFn  func(ctx context.Context) (api.Plans, error)
	copier   *share.Copier
	sharer   *share.Sharer
	bridge   *eventBridge
	throttle *RenderThrottle
	notice   *share.Indicator
	md       *markdownRenderer

	snap conversation.Snapshot

	viewport viewport.Model
	input    textinput.Model
	rename   textinput.Model
	spinner  spinner.Model

	mode        mode
	cursor      int
	renameID    string
	contentType int
	sample      int
	fast        bool
	user        string
	tickPending bool

	status      string
	statusAlert bool
	plans       api.Plans
	plansErr    error
	authExpired bool

	width  int
	height int
	ready  bool
}

// New creates the dashboard model.
func New(cfg Config) Model {
	ctx, cancel := context.WithCancel(context.Background())

	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your prompt..."
	ti.CharLimit = 4096
	ti.Focus()

	rn := textinput.New()
	rn.Prompt = "Title: "
	rn.CharLimit = 200

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Spinner),
	)

	ct := 0
	for i, c := range model.ContentTypes {
		if c.Name == cfg.ContentType {
			ct = i
		}
	}

	copier := cfg.Copier
	if copier == nil {
		copier = share.NewCopier(nil)
	}
	sharer := cfg.Sharer
	if sharer == nil {
		sharer = share.NewSharer()
	}

	throttle := NewRenderThrottle()
	return Model{
		ctx:         ctx,
		cancel:      cancel,
		mgr:         cfg.Manager,
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		plansFn:     cfg.Plans,
		copier:      copier,
		sharer:      sharer,
		bridge:      newEventBridge(cfg.Manager, throttle),
		throttle:    throttle,
		notice:      &share.Indicator{},
		md:          newMarkdownRenderer(theme.GlamourStyle()),
		snap:        cfg.Manager.Snapshot(),
		viewport:    viewport.New(80, 20),
		input:       ti,
		rename:      rn,
		spinner:     sp,
		contentType: ct,
		fast:        cfg.Fast,
		user:        cfg.User,
	}
}

// AuthExpired reports whether the dashboard exited because the backend
// rejected the session.
func (m Model) AuthExpired() bool {
	return m.authExpired
}

// Close releases the manager subscription and cancels in-flight requests.
func (m Model) Close() {
	m.cancel()
	m.bridge.close()
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the event bridge and the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.bridge.waitForWake(),
		m.bridge.waitForEvent(),
		m.loadCmd(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case wakeMsg:
		cmd := m.scheduleRender(time.Now())
		return m, tea.Batch(m.bridge.waitForWake(), cmd)

	case StreamTickMsg:
		m.tickPending = false
		return m, m.scheduleRender(msg.Time)

	case managerEventMsg:
		cmd := m.handleManagerEvent(msg.Event)
		return m, tea.Batch(m.bridge.waitForEvent(), cmd)

	case spinner.TickMsg:
		if !m.snap.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversationsLoadedMsg:
		m.flush()
		if msg.Err != nil {
			m.setAlert("Could not load chats: " + api.Message(msg.Err))
		}
		return m, nil

	case generateDoneMsg:
		m.flush()
		m.handleOperationError(msg.Err)
		return m, nil

	case renameDoneMsg:
		m.flush()
		if msg.Err != nil {
			m.setAlert("Rename failed: " + api.Message(msg.Err))
		} else {
			m.setStatus("Chat renamed.")
		}
		return m, nil

	case deleteDoneMsg:
		m.flush()
		if msg.Err != nil {
			m.setAlert("Delete failed: " + api.Message(msg.Err))
		} else {
			m.setStatus("Chat deleted.")
		}
		return m, nil

	case imageDoneMsg:
		m.flush()
		if msg.Err != nil {
			m.setAlert("Image generation failed: " + api.Message(msg.Err))
		}
		return m, nil

	case plansMsg:
		m.plans, m.plansErr = msg.Plans, msg.Err
		return m, nil

	case copyDoneMsg:
		if msg.Err != nil {
			m.setAlert("Copy failed: " + msg.Err.Error())
			return m, nil
		}
		m.notice.Trigger(time.Now())
		return m, tea.Tick(share.NoticeDuration, func(time.Time) tea.Msg { return noticeExpiredMsg{} })

	case shareDoneMsg:
		switch {
		case msg.Err != nil:
			m.setAlert("Share failed: " + msg.Err.Error())
		case msg.Opened:
			m.setStatus("Opened " + string(msg.Platform) + " in your browser.")
		}
		return m, nil

	case noticeExpiredMsg:
		return m, nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// RENDER SCHEDULING
// =============================================================================

// scheduleRender refreshes now if the throttle allows, otherwise arms a
// single tick for when it will.
func (m *Model) scheduleRender(now time.Time) tea.Cmd {
	if m.throttle.Flush(now) {
		m.refresh()
		if m.snap.Loading {
			return m.spinner.Tick
		}
		return nil
	}
	if m.throttle.Pending() == 0 || m.tickPending {
		return nil
	}
	m.tickPending = true
	return streamTickCmd(m.throttle.Wait(now))
}

// flush renders any pending change immediately.
func (m *Model) flush() {
	m.throttle.ForceFlush(time.Now())
	m.refresh()
}

// refresh re-reads the manager snapshot and rebuilds the transcript.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.snap = m.mgr.Snapshot()

	if n := len(m.snap.History); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if m.mode == modeConfirmDelete && m.snap.PendingDelete == "" {
		m.mode = modeSidebar
	}

	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.snap.Loading {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setStatus(s string) {
	m.status, m.statusAlert = s, false
}

func (m *Model) setAlert(s string) {
	m.status, m.statusAlert = s, true
}

// handleOperationError reports errors the transcript does not already
// show.
func (m *Model) handleOperationError(err error) {
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrBusy):
		m.setAlert("Please wait for the current request to finish.")
	case errors.Is(err, conversation.ErrEmptyPrompt):
	case errors.Is(err, api.ErrQuotaExceeded), errors.Is(err, api.ErrUnauthorized):
		// Reported through manager events.
	case errors.Is(err, context.Canceled):
	default:
		m.setAlert("Request failed: " + api.Message(err))
	}
}

func (m *Model) handleManagerEvent(ev conversation.Event) tea.Cmd {
	switch ev.Kind {
	case conversation.EventAlert:
		m.setAlert(ev.Message)
	case conversation.EventRedirect:
		switch ev.Route {
		case conversation.RoutePricing:
			m.mode = modePlans
			return m.plansCmd()
		case conversation.RouteLogin:
			m.authExpired = true
			m.cancel()
			return tea.Quit
		}
	}
	return nil
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 1
	statusHeight = 1
	promptHeight = 3
)

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	w := m.transcriptWidth()
	m.viewport.Width = max(w-2, 10)
	m.viewport.Height = max(m.bodyHeight(), 3)
	m.input.Width = max(w-6, 10)
	m.rename.Width = 40
	m.md.SetWidth(m.viewport.Width)
	m.help.Width = msg.Width
	m.ready = true

	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) bodyHeight() int {
	return m.height - headerHeight - statusHeight - promptHeight
}

func (m Model) transcriptWidth() int {
	return m.width - m.theme.SidebarWidth()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	switch m.mode {
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeRename:
		return m.handleRenameKey(msg)
	case modeShare:
		return m.handleShareKey(msg)
	case modePlans, modeHelp:
		if key.Matches(msg, m.keys.Back, m.keys.Plans, m.keys.Help, m.keys.Submit) {
			m.mode = modeChat
			m.input.Focus()
		}
		return m, nil
	}

	if next, cmd, ok := m.handleGlobalKey(msg); ok {
		return next, cmd
	}
	if m.mode == modeSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleChatKey(msg)
}

// handleGlobalKey handles keys shared by the prompt and the sidebar.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.NewChat):
		if err := m.mgr.StartNewConversation(); err != nil {
			m.handleOperationError(err)
			return m, nil, true
		}
		m.flush()
		m.mode = modeChat
		m.input.Focus()
		m.setStatus("New chat.")
		return m, nil, true

	case key.Matches(msg, m.keys.FocusToggle):
		if m.mode == modeSidebar {
			m.mode = modeChat
			m.input.Focus()
		} else {
			m.mode = modeSidebar
			m.input.Blur()
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Copy):
		text, ok := m.lastReply()
		if !ok {
			m.setAlert("Nothing to copy yet.")
			return m, nil, true
		}
		return m, m.copyCmd(text), true

	case key.Matches(msg, m.keys.Share):
		if _, ok := m.lastReply(); !ok {
			m.setAlert("Nothing to share yet.")
			return m, nil, true
		}
		m.mode = modeShare
		return m, nil, true

	case key.Matches(msg, m.keys.Image):
		if !m.snap.ImageOffered {
			m.setAlert("This reply does not offer an image.")
			return m, nil, true
		}
		m.setStatus("Generating image...")
		return m, tea.Batch(m.imageCmd(), m.spinner.Tick), true

	case key.Matches(msg, m.keys.NextType):
		m.contentType = (m.contentType + 1) % len(model.ContentTypes)
		m.sample = 0
		return m, nil, true

	case key.Matches(msg, m.keys.Plans):
		m.mode = modePlans
		return m, m.plansCmd(), true

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil, true

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil, true

	case key.Matches(msg, m.keys.Back):
		if m.snap.ImageOffered {
			m.mgr.DismissImageOffer()
		}
		m.status = ""
		if m.mode == modeSidebar {
			m.mode = modeChat
			m.input.Focus()
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return m, nil
		}
		if m.snap.Loading || m.snap.Deleting {
			m.setAlert("Please wait for the current request to finish.")
			return m, nil
		}
		m.input.Reset()
		m.status = ""
		return m, tea.Batch(m.generateCmd(prompt), m.spinner.Tick)

	case key.Matches(msg, m.keys.Sample):
		samples := model.ContentTypes[m.contentType].Samples
		if len(samples) > 0 {
			m.input.SetValue(samples[m.sample%len(samples)])
			m.input.CursorEnd()
			m.sample++
			m.mgr.SetPrompt(m.input.Value())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.mgr.SetPrompt(m.input.Value())
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snap.History)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < n-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
	case n == 0:
		// Remaining keys act on the selected chat.
	case key.Matches(msg, m.keys.Open):
		id := m.snap.History[m.cursor].Ref.ID()
		if _, err := m.mgr.SelectConversation(id); err != nil {
			m.handleOperationError(err)
			return m, nil
		}
		m.flush()
		m.viewport.GotoBottom()
		m.mode = modeChat
		m.input.Focus()
	case key.Matches(msg, m.keys.Rename):
		c := m.snap.History[m.cursor]
		m.renameID = c.Ref.ID()
		m.rename.SetValue(c.Title)
		m.rename.CursorEnd()
		m.rename.Focus()
		m.mode = modeRename
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Delete):
		if err := m.mgr.RequestDelete(m.snap.History[m.cursor].Ref.ID()); err != nil {
			m.handleOperationError(err)
			return m, nil
		}
		m.flush()
		m.mode = modeConfirmDelete
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeSidebar
		m.setStatus("Deleting chat...")
		return m, m.deleteCmd()
	case key.Matches(msg, m.keys.Deny):
		m.mgr.CancelDelete()
		m.flush()
		m.mode = modeSidebar
	}
	return m, nil
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		title := strings.TrimSpace(m.rename.Value())
		if title == "" {
			m.setAlert("Title cannot be empty.")
			return m, nil
		}
		m.rename.Blur()
		m.mode = modeSidebar
		return m, m.renameCmd(m.renameID, title)
	case key.Matches(msg, m.keys.Back):
		m.rename.Blur()
		m.mode = modeSidebar
		return m, nil
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

var shareKeys = map[string]share.Platform{
	"1": share.Facebook, "f": share.Facebook,
	"2": share.Twitter, "t": share.Twitter,
	"3": share.LinkedIn, "l": share.LinkedIn,
	"4": share.WhatsApp, "w": share.WhatsApp,
}

func (m Model) handleShareKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.mode = modeChat
		return m, nil
	}
	platform, ok := shareKeys[msg.String()]
	if !ok {
		return m, nil
	}
	m.mode = modeChat
	text, _ := m.lastReply()
	return m, m.shareCmd(platform, text)
}

// lastReply returns the content of the last generated reply in the active
// conversation.
func (m Model) lastReply() (string, bool) {
	if m.snap.Active == nil {
		return "", false
	}
	text, ok := m.snap.Active.LastAssistantContent()
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
