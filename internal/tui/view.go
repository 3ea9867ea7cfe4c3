package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/mistakeknot/taskdeck/internal/chat"
)

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var body string
	switch m.tab {
	case TabTasks:
		body = m.viewTasks()
	case TabChat:
		body = m.viewChat()
	case TabDashboard:
		body = m.viewDashboard()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewTabs(),
		body,
		m.viewStatus(),
	)
}

func (m Model) viewTabs() string {
	labels := []string{"1 Tasks", "2 Chat", "3 Dashboard"}
	parts := make([]string, len(labels))
	for i, label := range labels {
		if Tab(i) == m.tab {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = tabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) viewTasks() string {
	switch m.mode {
	case modeConfirmDelete:
		prompt := fmt.Sprintf("Delete %q? This cannot be undone.\n\n%s",
			m.confirmName,
			statusStyle.Render("enter: delete   esc: keep"))
		return activePanelStyle.Width(m.width - 2).Render(prompt)
	case modeForm:
		return m.viewForm()
	}

	var b strings.Builder
	if m.mode == modeSearch || m.searchQuery != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(m.taskList.View())
	return b.String()
}

func (m Model) viewForm() string {
	header := "New task"
	if m.form.editing {
		header = "Edit task"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")
	b.WriteString(m.form.title.View())
	b.WriteString("\n")
	b.WriteString(m.form.desc.View())
	b.WriteString("\n")

	badge := priorityStyle(string(m.form.priority)).Render(string(m.form.priority))
	if m.form.focus == 2 {
		b.WriteString(fmt.Sprintf("priority: %s %s", badge, statusStyle.Render("(space to cycle, enter to save)")))
	} else {
		b.WriteString("priority: " + badge)
	}
	if m.form.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.form.errText))
	}
	return activePanelStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) viewChat() string {
	innerWidth := m.width - 6
	history := m.renderHistory(innerWidth)

	maxLines := m.height - 10
	if maxLines < 3 {
		maxLines = 3
	}
	lines := strings.Split(history, "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	if m.chat.Typing() {
		b.WriteString(statusStyle.Render("assistant is typing..."))
		b.WriteString("\n")
	}
	b.WriteString(m.composer.View())
	return activePanelStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) renderHistory(width int) string {
	var b strings.Builder
	for _, msg := range m.chat.Messages() {
		if msg.Sender == chat.SenderUser {
			b.WriteString(userMsgStyle.Render("you"))
			b.WriteString("\n")
			b.WriteString(wordwrap.String(msg.Content, width))
		} else {
			b.WriteString(botMsgStyle.Render("assistant"))
			b.WriteString("\n")
			b.WriteString(renderMarkdown(msg.Content, width))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewDashboard() string {
	st := m.dash.State()

	tier := "optimistic"
	if st.Authoritative {
		tier = "authoritative"
	}

	stat := func(label string, value int) string {
		return fmt.Sprintf("%s %s",
			statValueStyle.Render(fmt.Sprintf("%4d", value)),
			statLabelStyle.Render(label))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard"))
	b.WriteString("\n\n")
	b.WriteString(stat("total", st.Stats.Total))
	b.WriteString("\n")
	b.WriteString(stat("completed", st.Stats.Completed))
	b.WriteString("\n")
	b.WriteString(stat("pending", st.Stats.Pending))
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render("counts: " + tier))
	if st.Err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("%s (%s)", st.Err, st.ErrKind)))
	}
	return activePanelStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) viewStatus() string {
	if m.errText != "" {
		return errorStyle.Render(m.errText)
	}
	if m.refreshing {
		return statusStyle.Render("refreshing...")
	}
	help := "tab: switch   r: refresh   q: quit"
	if m.tab == TabTasks {
		help = "space: toggle   n: new   e: edit   d: delete   f: filter   /: search   " + help
	}
	if m.status != "" {
		return statusStyle.Render(m.status + "   " + help)
	}
	return statusStyle.Render(help)
}
