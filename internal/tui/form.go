package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/task"
)

// taskForm is the modal create/edit form. Editing keeps the original
// task around so id, completion state and version survive the round
// trip.
type taskForm struct {
	title    textinput.Model
	desc     textinput.Model
	priority task.Priority
	focus    int
	editing  bool
	base     task.Task
	errText  string
}

func newTaskForm(t task.Task, editing bool) taskForm {
	title := textinput.New()
	title.Placeholder = "title"
	title.CharLimit = task.MaxTitleLen
	title.SetValue(t.Title)

	desc := textinput.New()
	desc.Placeholder = "description (optional)"
	desc.CharLimit = task.MaxDescriptionLen
	desc.SetValue(t.Description)

	priority := t.Priority
	if priority == "" {
		priority = task.PriorityLow
	}

	return taskForm{
		title:    title,
		desc:     desc,
		priority: priority,
		editing:  editing,
		base:     t,
	}
}

func (f *taskForm) focusCmd() tea.Cmd {
	f.focus = 0
	f.title.Focus()
	return textinput.Blink
}

func cyclePriority(p task.Priority) task.Priority {
	switch p {
	case task.PriorityLow:
		return task.PriorityMedium
	case task.PriorityMedium:
		return task.PriorityHigh
	}
	return task.PriorityLow
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		return m, nil

	case tea.KeyTab, tea.KeyShiftTab:
		if msg.Type == tea.KeyTab {
			m.form.focus = (m.form.focus + 1) % 3
		} else {
			m.form.focus = (m.form.focus + 2) % 3
		}
		m.form.title.Blur()
		m.form.desc.Blur()
		switch m.form.focus {
		case 0:
			m.form.title.Focus()
		case 1:
			m.form.desc.Focus()
		}
		return m, textinput.Blink

	case tea.KeyEnter:
		if m.form.focus == 2 {
			return m.submitForm()
		}
		m.form.focus++
		m.form.title.Blur()
		m.form.desc.Blur()
		if m.form.focus == 1 {
			m.form.desc.Focus()
		}
		return m, textinput.Blink

	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	if m.form.focus == 2 && msg.String() == " " {
		m.form.priority = cyclePriority(m.form.priority)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.form.focus {
	case 0:
		m.form.title, cmd = m.form.title.Update(msg)
	case 1:
		m.form.desc, cmd = m.form.desc.Update(msg)
	}
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.form.title.Value())
	if title == "" {
		m.form.errText = "title is required"
		return m, nil
	}

	if m.form.editing {
		edited := m.form.base
		edited.Title = title
		edited.Description = strings.TrimSpace(m.form.desc.Value())
		edited.Priority = m.form.priority
		m.mode = modeList
		ctrl := m.tasks
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			defer cancel()
			return mutationDoneMsg{op: "edit", err: ctrl.CommitEdit(ctx, edited)}
		}
	}

	draft := api.TaskDraft{
		Title:       title,
		Description: strings.TrimSpace(m.form.desc.Value()),
		Priority:    m.form.priority,
	}
	m.mode = modeList
	ctrl := m.tasks
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		_, err := ctrl.Create(ctx, draft)
		return mutationDoneMsg{op: "create", err: err}
	}
}
