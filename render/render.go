// Package render draws repository cards for terminals and HTTP clients.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"repocard/fetcher"
	"repocard/github"
	"repocard/models"
	"repocard/reference"
)

const (
	Title                  = "Project Repository"
	LinkLabel              = "View on GitHub"
	DescriptionPlaceholder = "No description available."
	LoadingText            = "Loading repository…"
)

var (
	colorText   = lipgloss.AdaptiveColor{Light: "236", Dark: "252"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "243", Dark: "246"}
	colorBorder = lipgloss.AdaptiveColor{Light: "250", Dark: "240"}
	colorError  = lipgloss.AdaptiveColor{Light: "160", Dark: "203"}
	colorAccent = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			MarginBottom(1)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	skeletonStyle = lipgloss.NewStyle().
			Foreground(colorBorder)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	linkStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Underline(true)
)

// Options controls card output
type Options struct {
	// Plain drops borders and colors
	Plain bool
	// Width wraps the card body; zero means no wrapping
	Width int
	// CopyHint is shown under the link when set
	CopyHint string
}

// ErrorMessage returns the one-line text shown for a failed state.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, reference.ErrInvalidReference):
		return reference.Message
	default:
		return github.FetchMessage
	}
}

// Card renders s. An Idle state renders as an empty string.
func Card(s fetcher.State, opts Options) string {
	if s.Phase == fetcher.Idle {
		return ""
	}

	lines := []string{style(opts, titleStyle, Title)}
	if opts.Plain {
		lines = []string{Title, strings.Repeat("-", len(Title))}
	}

	switch s.Phase {
	case fetcher.Loading:
		lines = append(lines,
			style(opts, skeletonStyle, strings.Repeat("▇", 24)),
			style(opts, skeletonStyle, strings.Repeat("▇", 16)),
			style(opts, mutedStyle, LoadingText))
	case fetcher.Failure:
		lines = append(lines, style(opts, errorStyle, ErrorMessage(s.Err)))
	case fetcher.Success:
		lines = append(lines, payloadLines(s.Payload, opts)...)
	}

	if s.Reference.Raw != "" {
		lines = append(lines, "", style(opts, mutedStyle, LinkLabel+": ")+style(opts, linkStyle, s.Reference.Raw))
		if opts.CopyHint != "" {
			lines = append(lines, style(opts, mutedStyle, opts.CopyHint))
		}
	}

	body := strings.Join(lines, "\n")
	if opts.Plain {
		return body + "\n"
	}
	cs := cardStyle
	if opts.Width > 0 {
		cs = cs.Width(opts.Width)
	}
	return cs.Render(body) + "\n"
}

func payloadLines(p *models.Payload, opts Options) []string {
	if p == nil {
		return nil
	}
	desc := DescriptionPlaceholder
	if p.Description != nil {
		desc = *p.Description
	}

	stats := []string{
		fmt.Sprintf("★ %d", p.Stars),
		fmt.Sprintf("⑂ %d", p.Forks),
	}
	if p.Language != nil {
		stats = append(stats, *p.Language)
	}

	return []string{
		style(opts, nameStyle, p.Name),
		style(opts, mutedStyle, desc),
		style(opts, mutedStyle, strings.Join(stats, "  ")),
	}
}

func style(opts Options, st lipgloss.Style, s string) string {
	if opts.Plain {
		return s
	}
	return st.Render(s)
}
