// Package tui implements the interactive chat interface on top of
// Bubble Tea. It renders one conversation thread with its grounded
// replies and citation lists.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driving"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// replyMsg carries the outcome of an asynchronous generation call.
type replyMsg struct {
	turn *driving.ChatTurn
	err  error
}

// Model is the Bubble Tea model for a single chat session.
type Model struct {
	ports  Ports
	ctx    context.Context
	chatID string

	input      textarea.Model
	viewport   viewport.Model
	transcript []string
	status     string
	waiting    bool
	ready      bool
}

// New creates a chat session model for an existing chat. The chat's
// history is loaded into the transcript.
func New(ports Ports, chatID string) (Model, error) {
	if ports.Chat == nil {
		return Model{}, errors.New("chat service not configured")
	}

	ctx := context.Background()
	chat, messages, err := ports.Chat.GetChat(ctx, chatID)
	if err != nil {
		return Model{}, fmt.Errorf("loading chat: %w", err)
	}

	input := textarea.New()
	input.Placeholder = "Ask a question about your documents"
	input.SetHeight(2)
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.Focus()

	m := Model{
		ports:    ports,
		ctx:      ctx,
		chatID:   chat.ID,
		input:    input,
		viewport: viewport.New(0, 0),
		status:   "Enter to send, Ctrl+C to quit.",
	}
	for i := range messages {
		m.transcript = append(m.transcript, renderMessage(&messages[i]))
	}
	return m, nil
}

// WithContext sets the context used for generation calls.
func (m Model) WithContext(ctx context.Context) Model {
	m.ctx = ctx
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textarea.Blink }

// Update handles key, window, and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + m.input.Height() + 1
		m.viewport.Width = msg.Width
		m.viewport.Height = maxInt(3, msg.Height-reserved)
		m.input.SetWidth(msg.Width - 4)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = errorStyle.Render(describeError(msg.err))
			m.refreshViewport()
			return m, nil
		}
		m.transcript = append(m.transcript, renderTurn(msg.turn))
		m.status = "Enter to send, Ctrl+C to quit."
		m.refreshViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return m, nil
	}

	m.input.Reset()
	m.transcript = append(m.transcript, userStyle.Render("You: ")+question)
	m.status = statusStyle.Render("Thinking...")
	m.waiting = true
	m.refreshViewport()

	ports, ctx, chatID := m.ports, m.ctx, m.chatID
	return m, func() tea.Msg {
		turn, err := ports.Chat.GenerateResponse(ctx, chatID, question, "")
		return replyMsg{turn: turn, err: err}
	}
}

// View renders the transcript, input box, and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Murmur Brain")
	return header + "\n\n" +
		m.viewport.View() + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		m.status
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

func renderMessage(msg *domain.Message) string {
	if msg.Role == domain.RoleUser {
		return userStyle.Render("You: ") + msg.Content
	}
	out := assistantStyle.Render("Brain: ") + msg.Content
	if s := renderSources(msg.Sources); s != "" {
		out += "\n" + s
	}
	return out
}

func renderTurn(turn *driving.ChatTurn) string {
	out := assistantStyle.Render("Brain: ") + turn.Response
	if s := renderSources(turn.Sources); s != "" {
		out += "\n" + s
	}
	return out
}

func renderSources(sources []domain.ChatSource) string {
	if len(sources) == 0 {
		return ""
	}
	lines := make([]string, 0, len(sources))
	for i := range sources {
		lines = append(lines, fmt.Sprintf("  [%d] %s (%.0f%%)",
			i+1, sources[i].FileName, sources[i].Similarity*100))
	}
	return sourceStyle.Render(strings.Join(lines, "\n"))
}

func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoRelevantContext):
		return "No relevant content found in the linked documents."
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "Language model unavailable. Is Ollama running?"
	default:
		return "Error: " + err.Error()
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
