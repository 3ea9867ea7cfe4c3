package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/chat"
	"github.com/mistakeknot/taskdeck/internal/dashboard"
	"github.com/mistakeknot/taskdeck/internal/task"
)

type fakeTasks struct {
	tasks   []task.Task
	pending map[string]bool

	refreshCalls int
	toggled      []string
	deleted      []string
	edited       []task.Task
	created      []api.TaskDraft
	refreshErr   error
	toggleErr    error
}

func (f *fakeTasks) Refresh(ctx context.Context) error {
	f.refreshCalls++
	return f.refreshErr
}

func (f *fakeTasks) Tasks() []task.Task { return f.tasks }

func (f *fakeTasks) Pending(id string) bool { return f.pending[id] }

func (f *fakeTasks) Toggle(ctx context.Context, id string) error {
	f.toggled = append(f.toggled, id)
	return f.toggleErr
}

func (f *fakeTasks) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTasks) CommitEdit(ctx context.Context, t task.Task) error {
	f.edited = append(f.edited, t)
	return nil
}

func (f *fakeTasks) Create(ctx context.Context, draft api.TaskDraft) (task.Task, error) {
	f.created = append(f.created, draft)
	return task.Task{ID: "9", Title: draft.Title}, nil
}

type fakeChat struct {
	messages  []chat.Message
	typing    bool
	sent      []string
	initCalls int
	resets    int
}

func (f *fakeChat) Initialize(ctx context.Context) error {
	f.initCalls++
	return nil
}

func (f *fakeChat) Send(ctx context.Context, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeChat) Messages() []chat.Message { return f.messages }

func (f *fakeChat) Typing() bool { return f.typing }

func (f *fakeChat) StartNew() error {
	f.resets++
	return nil
}

type fakeDash struct {
	state dashboard.State
	calls int
}

func (f *fakeDash) State() dashboard.State { return f.state }

func (f *fakeDash) FetchStats(ctx context.Context) error {
	f.calls++
	return nil
}

func newTestModel() (Model, *fakeTasks, *fakeChat, *fakeDash) {
	tasks := &fakeTasks{
		tasks: []task.Task{
			{ID: "1", Title: "write report", Priority: task.PriorityHigh},
			{ID: "2", Title: "review code", Completed: true, Priority: task.PriorityLow},
		},
		pending: map[string]bool{},
	}
	chatFake := &fakeChat{messages: []chat.Message{{Sender: chat.SenderBot, Content: "hello"}}}
	dash := &fakeDash{state: dashboard.State{Stats: api.Stats{Total: 2, Completed: 1, Pending: 1}, Authoritative: true}}

	m := New(tasks, chatFake, dash)
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model := sized.(Model)
	refreshed, _ := model.Update(tasksRefreshedMsg{gen: model.gen})
	return refreshed.(Model), tasks, chatFake, dash
}

func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func stripANSI(s string) string {
	return ansi.Strip(s)
}

func TestToggleKeySendsToggleForSelectedRow(t *testing.T) {
	m, tasks, _, _ := newTestModel()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	runCmd(t, cmd)
	_ = updated

	if len(tasks.toggled) != 1 || tasks.toggled[0] != "1" {
		t.Errorf("toggled = %v, want [1]", tasks.toggled)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m, tasks, _, _ := newTestModel()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	model := updated.(Model)
	if model.mode != modeConfirmDelete {
		t.Fatal("delete did not ask for confirmation")
	}
	if len(tasks.deleted) != 0 {
		t.Fatal("delete issued before confirmation")
	}

	view := stripANSI(model.View())
	if !strings.Contains(view, "write report") {
		t.Errorf("confirmation prompt does not name the task:\n%s", view)
	}

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, cmd)
	if len(tasks.deleted) != 1 || tasks.deleted[0] != "1" {
		t.Errorf("deleted = %v, want [1]", tasks.deleted)
	}
	if updated.(Model).mode != modeList {
		t.Error("mode not restored after confirm")
	}
}

func TestDeleteCancelKeepsTask(t *testing.T) {
	m, tasks, _, _ := newTestModel()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	updated, cmd := updated.(Model).Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Error("cancel must not issue a command")
	}
	if len(tasks.deleted) != 0 {
		t.Error("cancelled delete still reached the controller")
	}
	if updated.(Model).mode != modeList {
		t.Error("mode not restored after cancel")
	}
}

func TestStaleRefreshResultDropped(t *testing.T) {
	m, _, _, _ := newTestModel()

	// Two refreshes in flight; the first result arrives late.
	_ = m.refreshCmd()
	staleGen := m.gen
	_ = m.refreshCmd()

	updated, _ := m.Update(tasksRefreshedMsg{gen: staleGen, err: nil})
	if !updated.(Model).refreshing {
		t.Error("stale result cleared the refreshing flag")
	}

	updated, _ = updated.(Model).Update(tasksRefreshedMsg{gen: m.gen, err: nil})
	if updated.(Model).refreshing {
		t.Error("current result did not clear the refreshing flag")
	}
}

func TestChatEnterSendsComposerText(t *testing.T) {
	m, _, chatFake, _ := newTestModel()
	m.tab = TabChat
	m.composer.Focus()
	m.composer.SetValue("add buy milk")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, cmd)

	if len(chatFake.sent) != 1 || chatFake.sent[0] != "add buy milk" {
		t.Errorf("sent = %v", chatFake.sent)
	}
	if updated.(Model).composer.Value() != "" {
		t.Error("composer not cleared after send")
	}
}

func TestChatEnterIgnoredWhileReplyInFlight(t *testing.T) {
	m, _, chatFake, _ := newTestModel()
	m.tab = TabChat
	m.composer.Focus()
	m.composer.SetValue("second message")
	chatFake.typing = true

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		if msg := cmd(); msg != nil {
			t.Fatalf("dispatched %T while a reply was in flight", msg)
		}
	}
	if len(chatFake.sent) != 0 {
		t.Errorf("sent = %v, want none until the reply settles", chatFake.sent)
	}
	if updated.(Model).composer.Value() != "second message" {
		t.Error("composer text discarded while waiting")
	}
}

func TestChatViewShowsTypingIndicator(t *testing.T) {
	m, _, chatFake, _ := newTestModel()
	m.tab = TabChat

	chatFake.typing = true
	view := stripANSI(m.View())
	if !strings.Contains(view, "typing") {
		t.Error("typing indicator missing")
	}

	chatFake.typing = false
	view = stripANSI(m.View())
	if strings.Contains(view, "typing") {
		t.Error("typing indicator shown while idle")
	}
}

func TestDashboardViewShowsCountsAndTier(t *testing.T) {
	m, _, _, dash := newTestModel()
	m.tab = TabDashboard

	view := stripANSI(m.View())
	for _, want := range []string{"total", "completed", "pending", "authoritative"} {
		if !strings.Contains(view, want) {
			t.Errorf("dashboard view missing %q:\n%s", want, view)
		}
	}

	dash.state.Authoritative = false
	dash.state.Err = "stats response was malformed"
	view = stripANSI(m.View())
	if !strings.Contains(view, "optimistic") || !strings.Contains(view, "malformed") {
		t.Errorf("degraded state not surfaced:\n%s", view)
	}
}

func TestAuthErrorSurfacesLoginHint(t *testing.T) {
	m, _, _, _ := newTestModel()

	updated, _ := m.Update(mutationDoneMsg{op: "toggle", err: &api.Error{Status: 401, Detail: "expired"}})
	view := stripANSI(updated.(Model).View())
	if !strings.Contains(view, "taskdeck login") {
		t.Errorf("auth error hint missing:\n%s", view)
	}
}

func TestSearchFiltersTasks(t *testing.T) {
	m, _, _, _ := newTestModel()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	model := updated.(Model)
	if model.mode != modeSearch {
		t.Fatal("search mode not entered")
	}

	for _, r := range "review" {
		next, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		model = next.(Model)
	}
	if n := len(model.taskList.Items()); n != 1 {
		t.Fatalf("filtered items = %d, want 1", n)
	}
	if model.taskList.Items()[0].(taskItem).t.ID != "2" {
		t.Error("wrong task matched")
	}
}

func TestNewConversationKey(t *testing.T) {
	m, _, chatFake, _ := newTestModel()
	m.tab = TabChat

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if chatFake.resets != 1 {
		t.Errorf("resets = %d, want 1", chatFake.resets)
	}
}

func TestFilterCyclesCompletionStates(t *testing.T) {
	m, _, _, _ := newTestModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	model := next.(Model)
	if n := len(model.taskList.Items()); n != 1 {
		t.Fatalf("pending filter shows %d items, want 1", n)
	}
	if model.taskList.Items()[0].(taskItem).t.Completed {
		t.Error("pending filter kept a completed task")
	}

	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	model = next.(Model)
	if n := len(model.taskList.Items()); n != 1 {
		t.Fatalf("completed filter shows %d items, want 1", n)
	}
	if !model.taskList.Items()[0].(taskItem).t.Completed {
		t.Error("completed filter kept a pending task")
	}

	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	model = next.(Model)
	if n := len(model.taskList.Items()); n != 2 {
		t.Fatalf("cycling back to all shows %d items, want 2", n)
	}
}
