// Package tui renders the live plan dashboard behind `amsab watch`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
	"github.com/mastershashi/llm-engineering-usecases/internal/graph"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/session"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
)

// Mode represents what the dashboard is currently asking of the user
type Mode int

const (
	// ModeBrowse is the projection with node selection
	ModeBrowse Mode = iota
	// ModeHelp is the help screen
	ModeHelp
	// ModeConfirm holds an irreversible action until y/n
	ModeConfirm
	// ModeInput collects an argument override or a new task
	ModeInput
)

const (
	statePollInterval = 500 * time.Millisecond
	logHeight         = 8
)

type actionKind int

const (
	actionApprove actionKind = iota + 1
	actionSkip
	actionRewind
	actionEdit
	actionKill
)

// pending is the action waiting on the confirm or input modal.
type pending struct {
	kind   actionKind
	planID string
	nodeID int
	prompt string
}

// KeyMap lists the dashboard bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Clear       key.Binding
	Approve     key.Binding
	Veto        key.Binding
	Rewind      key.Binding
	Edit        key.Binding
	ApprovePlan key.Binding
	Kill        key.Binding
	Help        key.Binding
	Quit        key.Binding
	Yes         key.Binding
	No          key.Binding
	Submit      key.Binding
	Cancel      key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous node")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next node")),
		Clear:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
		Approve:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve node")),
		Veto:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "veto node")),
		Rewind:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rewind from node")),
		Edit:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
		ApprovePlan: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "approve plan")),
		Kill:        key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "kill switch")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Yes:         key.NewBinding(key.WithKeys("y", "Y")),
		No:          key.NewBinding(key.WithKeys("n", "N", "esc")),
		Submit:      key.NewBinding(key.WithKeys("enter")),
		Cancel:      key.NewBinding(key.WithKeys("esc")),
	}
}

// Model represents the TUI application state
type Model struct {
	ctx     context.Context
	actions Actions
	views   <-chan store.View

	// Latest store view and its projection
	view    store.View
	layout  graph.Layout
	chState channel.State

	// UI state
	mode     Mode
	pending  pending
	busy     bool
	notice   string
	lastErr  string
	width    int
	height   int
	ready    bool
	quitting bool

	input   textinput.Model
	logs    viewport.Model
	spinner spinner.Model

	styles Styles
	keys   KeyMap
}

// Messages

type viewMsg store.View

type viewsClosedMsg struct{}

type channelStateMsg channel.State

// resultMsg reports the outcome of an engine command.
type resultMsg struct {
	note string
	err  error
}

// NewModel creates a dashboard fed by views, starting from initial.
func NewModel(ctx context.Context, actions Actions, views <-chan store.View, initial store.View) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4096

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	m := Model{
		ctx:     ctx,
		actions: actions,
		views:   views,
		mode:    ModeBrowse,
		input:   ti,
		logs:    viewport.New(80, logHeight),
		spinner: sp,
		styles:  DefaultStyles(),
		keys:    DefaultKeyMap(),
	}
	return m.apply(initial)
}

// Run subscribes to the store and blocks until the user quits.
func Run(ctx context.Context, actions Actions, st *store.Store) error {
	views, cancel := st.Subscribe()
	defer cancel()

	m := NewModel(ctx, actions, views, st.Snapshot())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// Init initializes the TUI model (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForView(m.views), m.spinner.Tick, pollState(m.actions))
}

func waitForView(views <-chan store.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return viewsClosedMsg{}
		}
		return viewMsg(v)
	}
}

func pollState(a Actions) tea.Cmd {
	return tea.Tick(statePollInterval, func(time.Time) tea.Msg {
		return channelStateMsg(a.ChannelState())
	})
}

func (m Model) apply(v store.View) Model {
	m.view = v
	if v.Active != nil {
		m.layout = graph.Project(v.Active.DAG)
	} else {
		m.layout = graph.Layout{}
	}
	m.logs.SetContent(m.renderLogs())
	m.logs.GotoBottom()
	return m
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.logs.Width = max(msg.Width-4, 20)
		m.logs.Height = logHeight
		return m, nil

	case viewMsg:
		return m.apply(store.View(msg)), waitForView(m.views)

	case viewsClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case channelStateMsg:
		m.chState = channel.State(msg)
		return m, pollState(m.actions)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.notice = ""
		} else {
			m.lastErr = ""
			m.notice = msg.note
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case ModeHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Cancel) {
			m.mode = ModeBrowse
		}
		return m, nil

	case ModeConfirm:
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.mode = ModeBrowse
			return m.run(m.pending, "")
		case key.Matches(msg, m.keys.No):
			m.mode = ModeBrowse
			m.notice = "cancelled"
		}
		return m, nil

	case ModeInput:
		switch {
		case key.Matches(msg, m.keys.Submit):
			m.mode = ModeBrowse
			value := m.input.Value()
			m.input.Blur()
			return m.run(m.pending, value)
		case key.Matches(msg, m.keys.Cancel):
			m.mode = ModeBrowse
			m.input.Blur()
			m.notice = "cancelled"
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m.handleBrowseKey(msg)
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := m.view.Active
	node, selected := m.view.Selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, m.keys.Down):
		return m, m.moveSelection(1)

	case key.Matches(msg, m.keys.Up):
		return m, m.moveSelection(-1)

	case key.Matches(msg, m.keys.Clear):
		a := m.actions
		return m, func() tea.Msg {
			a.ClearSelection()
			return nil
		}

	case key.Matches(msg, m.keys.Approve):
		if !selected || node.Status != plan.NodeAwaitingApproval {
			m.notice = "select a node awaiting approval"
			return m, nil
		}
		return m.openInput(pending{kind: actionApprove, planID: active.ID, nodeID: node.ID,
			prompt: "Edited arguments (JSON object, enter keeps the planned ones)"}, "")

	case key.Matches(msg, m.keys.Veto):
		if !selected || node.Status != plan.NodeAwaitingApproval {
			m.notice = "select a node awaiting approval"
			return m, nil
		}
		m.pending = pending{kind: actionSkip, planID: active.ID, nodeID: node.ID, prompt: approval.VetoPrompt}
		m.mode = ModeConfirm

	case key.Matches(msg, m.keys.Rewind):
		if !selected || !node.Status.Rewindable() {
			m.notice = "select a completed or failed node to rewind"
			return m, nil
		}
		return m.openInput(pending{kind: actionRewind, planID: active.ID, nodeID: node.ID,
			prompt: "Replacement arguments for the branch (JSON object, enter keeps them)"}, "")

	case key.Matches(msg, m.keys.Edit):
		if !selected || !node.Status.Rewindable() {
			m.notice = "select a completed or failed node to edit"
			return m, nil
		}
		return m.openInput(pending{kind: actionEdit, planID: active.ID, nodeID: node.ID,
			prompt: "New task text for the branch"}, node.Task)

	case key.Matches(msg, m.keys.ApprovePlan):
		if active == nil || active.Status != plan.StatusDraft {
			m.notice = "only draft plans can be approved"
			return m, nil
		}
		m.busy = true
		ctx, a := m.ctx, m.actions
		return m, func() tea.Msg {
			return resultMsg{note: "plan approved", err: a.ApprovePlan(ctx)}
		}

	case key.Matches(msg, m.keys.Kill):
		if active == nil || !active.Status.Killable() {
			m.notice = "kill switch is only offered while a plan runs"
			return m, nil
		}
		m.pending = pending{kind: actionKill, planID: active.ID, prompt: session.KillPrompt}
		m.mode = ModeConfirm
	}

	return m, nil
}

func (m Model) openInput(p pending, initial string) (tea.Model, tea.Cmd) {
	m.pending = p
	m.mode = ModeInput
	m.input.SetValue(initial)
	m.input.CursorEnd()
	m.input.Placeholder = ""
	if p.kind != actionEdit {
		m.input.Placeholder = `{"path": "out.txt"}`
	}
	return m, m.input.Focus()
}

// moveSelection steps through nodes in plan order.
func (m Model) moveSelection(delta int) tea.Cmd {
	nodes := m.layout.Nodes
	if len(nodes) == 0 {
		return nil
	}

	next := 0
	if delta < 0 {
		next = len(nodes) - 1
	}
	if m.view.SelectedNode != nil {
		if cur, ok := m.layout.Placement(*m.view.SelectedNode); ok {
			next = min(max(cur.Index+delta, 0), len(nodes)-1)
		}
	}

	id, a := nodes[next].Node.ID, m.actions
	return func() tea.Msg {
		if err := a.Select(id); err != nil {
			return resultMsg{err: err}
		}
		return nil
	}
}

// run executes the pending action against the engine.
func (m Model) run(p pending, value string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.notice = ""
	ctx, a := m.ctx, m.actions

	return m, func() tea.Msg {
		switch p.kind {
		case actionApprove:
			return resultMsg{note: fmt.Sprintf("node %d approved", p.nodeID),
				err: a.ApproveNode(ctx, p.planID, p.nodeID, value)}
		case actionSkip:
			return resultMsg{note: fmt.Sprintf("node %d vetoed", p.nodeID),
				err: a.SkipNode(ctx, p.planID, p.nodeID)}
		case actionRewind:
			return resultMsg{note: fmt.Sprintf("branched from node %d", p.nodeID),
				err: a.Rewind(ctx, p.planID, p.nodeID, value)}
		case actionEdit:
			return resultMsg{note: fmt.Sprintf("branched from node %d with an edited task", p.nodeID),
				err: a.EditTask(ctx, p.planID, p.nodeID, strings.TrimSpace(value))}
		case actionKill:
			return resultMsg{note: "kill switch sent", err: a.Kill(ctx, p.planID)}
		}
		return nil
	}
}

// View renders the TUI (required by Bubble Tea)
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.quitting {
		return ""
	}

	switch m.mode {
	case ModeHelp:
		return m.renderHelp()
	default:
		return m.renderMain()
	}
}
