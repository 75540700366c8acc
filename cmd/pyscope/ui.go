// # cmd/pyscope/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pyscope/internal/checker"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	summary    Summary
	lastUpdate time.Time
}

type updateMsg struct {
	summary Summary
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.summary = msg.summary
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, c := range m.summary.Cycles {
			items = append(items, item{
				title: "Import Cycle",
				desc:  c,
			})
		}
		for _, f := range m.summary.Findings {
			if f.Diag.Rule == checker.RuleImportCycle {
				continue
			}
			items = append(items, item{
				title: fmt.Sprintf("%s (%s)", f.Diag.Rule, f.Diag.Severity),
				desc:  fmt.Sprintf("%s in %s:%d", f.Diag.Message, f.Path, f.Diag.Line),
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	s := m.summary
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d tracked | %d in registry | %d edges",
		m.lastUpdate.Format("15:04:05"), s.TrackedFiles, s.RegistryFiles, s.ImportEdges))

	var summary string
	if s.ErrorCount == 0 && s.WarningCount == 0 && len(s.Cycles) == 0 {
		summary = successStyle.Render("✅ No Findings")
	} else {
		summary = fmt.Sprintf("⚠️  %s | %s | %s",
			errorStyle.Render(fmt.Sprintf("%d Errors", s.ErrorCount)),
			warningStyle.Render(fmt.Sprintf("%d Warnings", s.WarningCount)),
			errorStyle.Render(fmt.Sprintf("%d Cycles", len(s.Cycles))))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Python Analysis Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Diagnostics"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}
