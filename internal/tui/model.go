// Package tui is the interactive terminal frontend: a task list, the
// assistant chat, and the stats dashboard on three tabs, all driven by
// the controllers that own the underlying state.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/chat"
	"github.com/mistakeknot/taskdeck/internal/dashboard"
	"github.com/mistakeknot/taskdeck/internal/task"
	"github.com/mistakeknot/taskdeck/internal/tasklist"
)

// opTimeout bounds every controller call issued from the UI. Generous
// because chat replies can involve multi-step tool calls backend-side.
const opTimeout = 30 * time.Second

type Tab int

const (
	TabTasks Tab = iota
	TabChat
	TabDashboard
)

type mode int

const (
	modeList mode = iota
	modeConfirmDelete
	modeForm
	modeSearch
)

// taskFilter narrows the visible rows by completion state.
type taskFilter int

const (
	filterAll taskFilter = iota
	filterPending
	filterCompleted
)

func (f taskFilter) String() string {
	switch f {
	case filterPending:
		return "pending"
	case filterCompleted:
		return "completed"
	}
	return "all"
}

// taskAPI is the slice of the task list controller the model uses.
type taskAPI interface {
	Refresh(ctx context.Context) error
	Tasks() []task.Task
	Pending(id string) bool
	Toggle(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CommitEdit(ctx context.Context, t task.Task) error
	Create(ctx context.Context, draft api.TaskDraft) (task.Task, error)
}

// chatAPI is the slice of the chat session the model uses.
type chatAPI interface {
	Initialize(ctx context.Context) error
	Send(ctx context.Context, text string) error
	Messages() []chat.Message
	Typing() bool
	StartNew() error
}

// dashAPI is the slice of the aggregator the model uses.
type dashAPI interface {
	State() dashboard.State
	FetchStats(ctx context.Context) error
}

type (
	tasksRefreshedMsg struct {
		gen int
		err error
	}
	mutationDoneMsg struct {
		op  string
		err error
	}
	chatInitDoneMsg struct{ err error }
	chatSentMsg     struct{ err error }
	statsFetchedMsg struct{ err error }
)

type Model struct {
	keys keyMap
	tab  Tab
	mode mode

	width  int
	height int

	tasks taskAPI
	chat  chatAPI
	dash  dashAPI

	taskList    list.Model
	gen         int
	refreshing  bool
	confirmID   string
	confirmName string
	form        taskForm
	search      textinput.Model
	searchQuery string
	filter      taskFilter

	composer   textarea.Model
	chatScroll int

	errText string
	status  string
}

// Option adjusts the model at construction time.
type Option func(*Model)

// WithCompactTasks renders the task list without description lines.
func WithCompactTasks() Option {
	return func(m *Model) {
		delegate := list.NewDefaultDelegate()
		delegate.ShowDescription = false
		delegate.SetSpacing(0)
		m.taskList.SetDelegate(delegate)
	}
}

// New assembles the model around already-constructed controllers.
func New(tasks taskAPI, chatSession chatAPI, dash dashAPI, opts ...Option) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(colorCyan).BorderLeftForeground(colorCyan)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(colorMuted).BorderLeftForeground(colorCyan)

	tl := list.New(nil, delegate, 0, 0)
	tl.Title = "Tasks"
	tl.Styles.Title = titleStyle
	tl.SetShowHelp(false)
	tl.SetFilteringEnabled(false)
	tl.SetShowStatusBar(false)

	composer := textarea.New()
	composer.Placeholder = "Ask the assistant..."
	composer.SetHeight(2)
	composer.CharLimit = 2000
	composer.ShowLineNumbers = false

	search := textinput.New()
	search.Placeholder = "search tasks"
	search.Prompt = "/ "

	m := Model{
		keys:     defaultKeyMap(),
		tasks:    tasks,
		chat:     chatSession,
		dash:     dash,
		taskList: tl,
		composer: composer,
		search:   search,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.statsCmd(), m.chatInitCmd(), textarea.Blink)
}

func (m *Model) refreshCmd() tea.Cmd {
	m.gen++
	m.refreshing = true
	gen := m.gen
	ctrl := m.tasks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return tasksRefreshedMsg{gen: gen, err: ctrl.Refresh(ctx)}
	}
}

func (m *Model) toggleCmd(id string) tea.Cmd {
	ctrl := m.tasks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return mutationDoneMsg{op: "toggle", err: ctrl.Toggle(ctx, id)}
	}
}

func (m *Model) deleteCmd(id string) tea.Cmd {
	ctrl := m.tasks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return mutationDoneMsg{op: "delete", err: ctrl.Delete(ctx, id)}
	}
}

func (m *Model) chatInitCmd() tea.Cmd {
	session := m.chat
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return chatInitDoneMsg{err: session.Initialize(ctx)}
	}
}

func (m *Model) chatSendCmd(text string) tea.Cmd {
	session := m.chat
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return chatSentMsg{err: session.Send(ctx, text)}
	}
}

func (m *Model) statsCmd() tea.Cmd {
	dash := m.dash
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return statsFetchedMsg{err: dash.FetchStats(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskList.SetSize(msg.Width-4, msg.Height-7)
		m.composer.SetWidth(msg.Width - 6)
		return m, nil

	case tasksRefreshedMsg:
		if msg.gen < m.gen {
			// A newer refresh is already in flight; this result is stale.
			return m, nil
		}
		m.gen = msg.gen
		m.refreshing = false
		m.setError(msg.err)
		m.syncItems()
		return m, nil

	case mutationDoneMsg:
		m.setError(msg.err)
		m.syncItems()
		if msg.err == nil {
			m.status = msg.op + " ok"
		}
		return m, nil

	case chatInitDoneMsg:
		m.setError(msg.err)
		return m, nil

	case chatSentMsg:
		m.setError(msg.err)
		m.chatScroll = 0
		// A chat turn may have mutated tasks via the session's
		// callback; pick up the new controller state.
		m.syncItems()
		return m, nil

	case statsFetchedMsg:
		// The aggregator snapshot carries its own error text.
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeConfirmDelete:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			id := m.confirmID
			m.mode = modeList
			m.confirmID = ""
			return m, m.deleteCmd(id)
		case key.Matches(msg, m.keys.Cancel):
			m.mode = modeList
			m.confirmID = ""
			return m, nil
		}
		return m, nil

	case modeForm:
		return m.updateForm(msg)

	case modeSearch:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.mode = modeList
			m.search.Blur()
			m.search.SetValue("")
			m.searchQuery = ""
			m.syncItems()
			return m, nil
		case msg.Type == tea.KeyEnter:
			m.mode = modeList
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.searchQuery = m.search.Value()
		m.syncItems()
		return m, cmd
	}

	// Chat composer owns most keys while focused.
	if m.tab == TabChat && m.composer.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			// One send at a time; replies must land in send order.
			if m.chat.Typing() {
				return m, nil
			}
			text := m.composer.Value()
			m.composer.Reset()
			if text == "" {
				return m, nil
			}
			return m, m.chatSendCmd(text)
		case tea.KeyEsc:
			m.composer.Blur()
			return m, nil
		case tea.KeyCtrlC:
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % 3
		return m.enterTab()
	case key.Matches(msg, m.keys.Tasks):
		m.tab = TabTasks
		return m.enterTab()
	case key.Matches(msg, m.keys.Chat):
		m.tab = TabChat
		return m.enterTab()
	case key.Matches(msg, m.keys.Dashboard):
		m.tab = TabDashboard
		return m.enterTab()
	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.refreshCmd(), m.statsCmd())
	}

	switch m.tab {
	case TabTasks:
		return m.handleTaskKey(msg)
	case TabChat:
		switch {
		case key.Matches(msg, m.keys.NewConv):
			m.setError(m.chat.StartNew())
			return m, nil
		case msg.Type == tea.KeyRunes || msg.Type == tea.KeyEnter:
			m.composer.Focus()
			var cmd tea.Cmd
			m.composer, cmd = m.composer.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleTaskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selectedTask(); ok {
			return m, m.toggleCmd(t.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selectedTask(); ok {
			m.mode = modeConfirmDelete
			m.confirmID = t.ID
			m.confirmName = t.Title
		}
		return m, nil
	case key.Matches(msg, m.keys.New):
		m.mode = modeForm
		m.form = newTaskForm(task.Task{}, false)
		return m, m.form.focusCmd()
	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selectedTask(); ok {
			m.mode = modeForm
			m.form = newTaskForm(t, true)
			return m, m.form.focusCmd()
		}
		return m, nil
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Filter):
		m.filter = (m.filter + 1) % 3
		m.taskList.Title = "Tasks"
		if m.filter != filterAll {
			m.taskList.Title = "Tasks: " + m.filter.String()
		}
		m.syncItems()
		return m, nil
	}
	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m Model) enterTab() (tea.Model, tea.Cmd) {
	m.mode = modeList
	switch m.tab {
	case TabChat:
		m.composer.Focus()
		return m, textarea.Blink
	case TabDashboard:
		return m, m.statsCmd()
	}
	m.composer.Blur()
	return m, nil
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.tab == TabChat {
		m.composer, cmd = m.composer.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.taskList, cmd = m.taskList.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// selectedTask resolves the highlighted list row back to a task.
func (m *Model) selectedTask() (task.Task, bool) {
	item, ok := m.taskList.SelectedItem().(taskItem)
	if !ok {
		return task.Task{}, false
	}
	return item.t, true
}

// syncItems rebuilds the visible list from controller state, applying
// the fuzzy search query when one is active.
func (m *Model) syncItems() {
	tasks := m.tasks.Tasks()
	if m.filter != filterAll {
		kept := tasks[:0:0]
		for _, t := range tasks {
			if t.Completed == (m.filter == filterCompleted) {
				kept = append(kept, t)
			}
		}
		tasks = kept
	}
	if m.searchQuery != "" {
		names := make([]string, len(tasks))
		for i, t := range tasks {
			names[i] = t.Title + " " + t.Description
		}
		matches := fuzzy.Find(m.searchQuery, names)
		filtered := make([]task.Task, len(matches))
		for i, match := range matches {
			filtered[i] = tasks[match.Index]
		}
		tasks = filtered
	}
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{t: t, pending: m.tasks.Pending(t.ID)}
	}
	m.taskList.SetItems(items)
}

func (m *Model) setError(err error) {
	if err == nil {
		m.errText = ""
		return
	}
	switch {
	case errors.Is(err, tasklist.ErrMutationPending):
		m.errText = "previous change still saving, hold on"
	case errors.Is(err, chat.ErrEmptyMessage):
		m.errText = ""
	case api.IsAuth(err):
		m.errText = "session expired: run `taskdeck login` and restart"
	case api.IsConflict(err):
		m.errText = "task changed elsewhere, list reloaded"
	case api.IsTimeout(err):
		m.errText = "backend timed out, try refreshing"
	default:
		m.errText = fmt.Sprintf("error: %v", err)
	}
}

// taskItem adapts a task to the bubbles list.
type taskItem struct {
	t       task.Task
	pending bool
}

func (i taskItem) Title() string {
	mark := "[ ]"
	style := botMsgStyle
	if i.t.Completed {
		mark = "[x]"
		style = doneStyle
	}
	title := fmt.Sprintf("%s %s", mark, i.t.Title)
	if i.pending {
		return pendingStyle.Render(title + " …")
	}
	return style.Render(title)
}

func (i taskItem) Description() string {
	badge := priorityStyle(string(i.t.Priority)).Render(string(i.t.Priority))
	if i.t.Description == "" {
		return badge
	}
	return badge + " " + i.t.Description
}

func (i taskItem) FilterValue() string { return i.t.Title }
