package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/askdocs-go/internal/client"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// eventMsg carries one progress event from the WebSocket stream.
type eventMsg client.ProgressEvent

// streamDoneMsg signals that the WebSocket stream ended.
type streamDoneMsg struct {
	err error
}

// progressModel is the bubbletea model for crawl job progress.
type progressModel struct {
	jobID    string
	events   <-chan client.ProgressEvent
	errCh    <-chan error
	last     *client.ProgressEvent
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newProgressModel(jobID string, events <-chan client.ProgressEvent, errCh <-chan error) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		jobID:    jobID,
		events:   events,
		errCh:    errCh,
		progress: prog,
		theme:    defaultTheme,
	}
}

// waitForEvent blocks on the event stream. Runs as a command so
// Update() never blocks.
func (m progressModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return streamDoneMsg{err: <-m.errCh}
		}
		return eventMsg(ev)
	}
}

// Init returns the initial command (start reading the stream).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEvent(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		ev := client.ProgressEvent(msg)
		m.last = &ev

		if ev.Terminal() {
			m.done = true
			if ev.Status == "failed" {
				if ev.Error != "" {
					m.err = fmt.Errorf("%s", ev.Error)
				} else {
					m.err = fmt.Errorf("job failed with unknown error")
				}
			}
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case streamDoneMsg:
		m.done = true
		if msg.err != nil {
			m.err = fmt.Errorf("progress stream: %w", msg.err)
		}
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.last == nil {
		return "Waiting for crawl to start...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.last.Status))
	progressBar := m.progress.ViewAs(float64(m.last.Progress) / 100)

	counts := m.last.Stage
	if m.last.PagesFound > 0 {
		counts = fmt.Sprintf("%d/%d pages", m.last.PagesDone, m.last.PagesFound)
		if m.last.Sections > 0 {
			counts += fmt.Sprintf(", %d sections", m.last.Sections)
		}
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues in background.\nUse 'askdocs jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Crawl failed: %s\n", m.err))
	}

	if m.last != nil {
		var output string
		output += m.theme.completedStyle().Render("✓ Indexed "+m.last.DocName) + "\n\n"
		output += fmt.Sprintf("  Pages crawled:     %d\n", m.last.PagesDone)
		output += fmt.Sprintf("  Sections embedded: %d\n", m.last.Sections)
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// followJob streams a job's progress events into the interactive UI.
// Returns nil on success or Ctrl+C (job continues in background), the
// job's error on failure.
func followJob(jobID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan client.ProgressEvent)
	errCh := make(chan error, 1)
	go func() {
		err := apiClient.FollowJob(ctx, jobID, func(ev client.ProgressEvent) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		errCh <- err
		close(events)
	}()

	model := newProgressModel(jobID, events, errCh)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		// Ctrl+C detaches; the job keeps running server-side
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}
	return nil
}
