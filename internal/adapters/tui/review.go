// Package tui implements the interactive sync plan review: the
// computed plan is shown in a scrollable view and applied only after
// explicit approval.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codex/internal/adapters/tui/styles"
	"codex/internal/domain"
	"codex/internal/ports"
)

// Reviewer runs the plan-review program on the terminal.
type Reviewer struct{}

var _ ports.PlanReviewer = (*Reviewer)(nil)

// NewReviewer creates a Reviewer.
func NewReviewer() *Reviewer {
	return &Reviewer{}
}

// Review implements ports.PlanReviewer.
func (r *Reviewer) Review(ctx context.Context, plan *domain.SyncPlan) (bool, error) {
	p := tea.NewProgram(newReviewModel(plan), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("plan review failed: %w", err)
	}
	m, ok := final.(reviewModel)
	if !ok {
		return false, nil
	}
	return m.approved, nil
}

// ReviewKeyMap defines key bindings for the review view
type ReviewKeyMap struct {
	Apply  key.Binding
	Cancel key.Binding
}

// DefaultReviewKeys returns the default review key bindings
var DefaultReviewKeys = ReviewKeyMap{
	Apply: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "apply"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc", "q", "ctrl+c"),
		key.WithHelp("n/esc", "cancel"),
	),
}

type reviewModel struct {
	plan     *domain.SyncPlan
	viewport viewport.Model
	keys     ReviewKeyMap

	ready    bool
	approved bool
}

func newReviewModel(plan *domain.SyncPlan) reviewModel {
	return reviewModel{plan: plan, keys: DefaultReviewKeys}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Reserve lines for the title and the help bar.
		height := msg.Height - 4
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(renderPlan(m.plan))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Apply):
			m.approved = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m reviewModel) View() string {
	if !m.ready {
		return "loading plan..."
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render(fmt.Sprintf("Sync plan (%s)", m.plan.Direction)))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(styles.HelpKey.Render("y"))
	b.WriteString(styles.HelpDesc.Render(" apply  "))
	b.WriteString(styles.HelpKey.Render("n"))
	b.WriteString(styles.HelpDesc.Render(" cancel  "))
	b.WriteString(styles.HelpKey.Render("↑/↓"))
	b.WriteString(styles.HelpDesc.Render(" scroll"))
	return b.String()
}

// renderPlan lists every non-noop entry with its operation and the
// summary line, conflicts flagged inline.
func renderPlan(plan *domain.SyncPlan) string {
	var b strings.Builder

	for _, e := range plan.Entries {
		if e.Op == domain.OpNoop {
			continue
		}
		b.WriteString(opStyle(e.Op).Render(fmt.Sprintf("%-6s", e.Op)))
		b.WriteString(" ")
		b.WriteString(e.Path)
		if e.SourceProject != "" {
			b.WriteString(styles.Subtitle.Render("  (" + e.SourceProject + ")"))
		}
		if e.Conflict {
			b.WriteString("  ")
			b.WriteString(styles.Conflict.Render("conflict"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(fmt.Sprintf(
		"%d create, %d update, %d delete, %d unchanged, %d conflicts",
		plan.Creates, plan.Updates, plan.Deletes, plan.Noops, plan.Conflicts)))
	b.WriteString("\n")
	return b.String()
}

func opStyle(op domain.SyncOp) lipgloss.Style {
	switch op {
	case domain.OpCreate:
		return styles.OpCreate
	case domain.OpUpdate:
		return styles.OpUpdate
	case domain.OpDelete:
		return styles.OpDelete
	default:
		return styles.OpNoop
	}
}
