package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/chatkit-broker/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const mountPollInterval = 250 * time.Millisecond

type mountSettledMsg struct {
	err error
}

type mountPollMsg time.Time

// mountProgressModel follows one panel cycle: it waits on the cycle's done
// channel itself and polls the panel state to label the spinner.
type mountProgressModel struct {
	ctx     context.Context
	done    <-chan struct{}
	state   func() application.PanelState
	timeout time.Duration

	spinner  spinner.Model
	started  time.Time
	elapsed  time.Duration
	phase    application.PanelState
	err      error
	finished bool
}

func newMountProgressModel(ctx context.Context, done <-chan struct{}, state func() application.PanelState, timeout time.Duration) mountProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return mountProgressModel{
		ctx:     ctx,
		done:    done,
		state:   state,
		timeout: timeout,
		spinner: s,
		started: time.Now(),
		phase:   application.PanelLoading,
	}
}

func (m mountProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.awaitSettled(), m.poll())
}

func (m mountProgressModel) awaitSettled() tea.Cmd {
	done, ctx := m.done, m.ctx
	return func() tea.Msg {
		select {
		case <-done:
			return mountSettledMsg{}
		case <-ctx.Done():
			return mountSettledMsg{err: ctx.Err()}
		}
	}
}

func (m mountProgressModel) poll() tea.Cmd {
	return tea.Tick(mountPollInterval, func(t time.Time) tea.Msg {
		return mountPollMsg(t)
	})
}

func (m mountProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case mountPollMsg:
		if m.finished {
			return m, nil
		}
		if m.state != nil {
			m.phase = m.state()
		}
		m.elapsed = time.Time(msg).Sub(m.started)
		return m, m.poll()
	case mountSettledMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m mountProgressModel) View() string {
	if m.finished {
		return ""
	}

	label := "Preparing your ChatKit session..."
	if m.phase != application.PanelLoading {
		label = fmt.Sprintf("Finishing up (%s)...", m.phase)
	}

	elapsed := m.elapsed.Truncate(time.Second)
	if m.timeout > 0 {
		return fmt.Sprintf("%s %s %s / %s", m.spinner.View(), label, elapsed, m.timeout)
	}
	return fmt.Sprintf("%s %s %s", m.spinner.View(), label, elapsed)
}

// runMountSpinner shows progress on output until done is closed or ctx ends.
func runMountSpinner(ctx context.Context, output io.Writer, done <-chan struct{}, state func() application.PanelState, timeout time.Duration) error {
	p := tea.NewProgram(
		newMountProgressModel(ctx, done, state, timeout),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(mountProgressModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
