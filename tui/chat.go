// Package tui is the terminal chat with the mandi broker.
//
// It follows the bubbletea model: Update consumes key presses and broker
// replies, View renders the transcript. The Chat owns the transcript; the
// broker only ever sees a copy.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/veriyield/neuralchain/agent"
	"github.com/veriyield/neuralchain/market"
)

// Broker answers one negotiation turn.
type Broker interface {
	Turn(ctx context.Context, transcript []agent.Turn, attrs agent.Attributes, message string) string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
)

// replyMsg carries a finished broker turn back into Update.
type replyMsg struct {
	message string
	reply   string
}

// Chat is the negotiation chat model.
type Chat struct {
	ctx        context.Context
	broker     Broker
	attrs      agent.Attributes
	transcript []agent.Turn
	input      textinput.Model
	pending    bool
	width      int
}

// NewChat opens a chat about the crop in attrs, starting with the broker's greeting.
func NewChat(ctx context.Context, broker Broker, attrs agent.Attributes) *Chat {
	in := textinput.New()
	in.Placeholder = "Type your offer, or press 1-4 for a quick question"
	in.CharLimit = 280
	in.Focus()

	return &Chat{
		ctx:        ctx,
		broker:     broker,
		attrs:      attrs.Clone(),
		transcript: []agent.Turn{{Role: agent.RoleAgent, Content: market.Greeting(attrs)}},
		input:      in,
	}
}

// Transcript returns a copy of the conversation so far.
func (c *Chat) Transcript() []agent.Turn {
	return append([]agent.Turn(nil), c.transcript...)
}

// Pending reports whether a broker reply is outstanding.
func (c *Chat) Pending() bool {
	return c.pending
}

func (c *Chat) Init() tea.Cmd {
	return textinput.Blink
}

func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.input.Width = max(msg.Width-4, 10)
		return c, nil

	case replyMsg:
		c.transcript = append(c.transcript,
			agent.Turn{Role: agent.RoleUser, Content: msg.message},
			agent.Turn{Role: agent.RoleAgent, Content: msg.reply},
		)
		c.pending = false
		return c, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return c, tea.Quit
		case "enter":
			return c, c.send(c.input.Value())
		case "1", "2", "3", "4":
			if c.input.Value() == "" {
				i := int(msg.String()[0] - '1')
				return c, c.send(market.QuickActions[i].Message)
			}
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

// send starts a broker turn. The transcript is extended only when the reply arrives.
func (c *Chat) send(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || c.pending {
		return nil
	}
	c.pending = true
	c.input.Reset()

	ctx, broker, attrs := c.ctx, c.broker, c.attrs.Clone()
	transcript := c.Transcript()
	return func() tea.Msg {
		return replyMsg{message: text, reply: broker.Turn(ctx, transcript, attrs, text)}
	}
}

func (c *Chat) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("🤝 Negotiating %s with %s", c.attrs.Get(agent.AttrCrop, market.DefaultCrop), market.Name)))
	b.WriteString("\n\n")

	for _, t := range c.transcript {
		if t.Role == agent.RoleUser {
			b.WriteString(userStyle.Render("You: "))
		} else {
			b.WriteString(agentStyle.Render(market.Name + ": "))
		}
		b.WriteString(t.Content)
		b.WriteString("\n\n")
	}

	if c.pending {
		b.WriteString(statusStyle.Render(market.Name + " is checking the mandi rates..."))
		b.WriteString("\n\n")
	}

	b.WriteString(c.input.View())
	b.WriteString("\n")

	hints := make([]string, 0, len(market.QuickActions))
	for i, qa := range market.QuickActions {
		hints = append(hints, fmt.Sprintf("%d %s", i+1, qa.Label))
	}
	b.WriteString(hintStyle.Render(strings.Join(hints, "  ·  ") + "  ·  esc quit"))
	return b.String()
}
