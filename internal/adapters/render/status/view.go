package status

import (
	"fmt"

	"github.com/bnema/chatkit-broker/internal/application"
	"github.com/charmbracelet/lipgloss"
)

type Report struct {
	State     application.PanelState
	ElementID string
	// Err is the panel's error message when State is PanelErrored.
	Err error
	// NeedsDeveloperConfig selects the local override hint instead of the
	// generic connectivity hint.
	NeedsDeveloperConfig bool
	SecretEnv            string
}

func renderView(report Report, s styles) string {
	lines := []string{
		s.title.Render("ChatKit"),
		s.header.Render(fmt.Sprintf("chat: %s (element %q)", report.State, report.ElementID)),
	}

	if report.State != application.PanelErrored {
		if report.State == application.PanelMounted {
			lines = append(lines, s.ok.Render("Widget mounted."))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	failure := []string{s.warning.Render("We couldn't start the chat")}
	if report.Err != nil {
		failure = append(failure, s.detail.Render(report.Err.Error()))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, failure...)))

	if report.NeedsDeveloperConfig {
		hint := []string{
			s.detail.Render(fmt.Sprintf("For local runs, export %s on the server or save a key for this machine:", report.SecretEnv)),
			s.code.Render("ckb devconfig set --api-key sk-... [--workflow-id wf_...]"),
			s.detail.Render("The value is stored only in your local storage file."),
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, hint...)))
	} else {
		lines = append(lines, s.section.Render(s.detail.Render(
			"Double-check your network connection and make sure the ChatKit API is reachable from your local environment.",
		)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
