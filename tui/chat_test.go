package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriyield/neuralchain/agent"
	"github.com/veriyield/neuralchain/market"
)

type recordingBroker struct {
	calls []recordedTurn
}

type recordedTurn struct {
	transcript []agent.Turn
	message    string
}

func (b *recordingBroker) Turn(_ context.Context, transcript []agent.Turn, _ agent.Attributes, message string) string {
	b.calls = append(b.calls, recordedTurn{transcript: transcript, message: message})
	return "Sir ji, ₹24 final."
}

func typeText(c *Chat, s string) {
	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// run executes cmd and feeds its message back into the chat.
func run(t *testing.T, c *Chat, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	c.Update(cmd())
}

func TestChat_StartsWithGreeting(t *testing.T) {
	c := NewChat(context.Background(), &recordingBroker{}, agent.Attributes{agent.AttrCrop: "Onion"})

	tr := c.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, agent.RoleAgent, tr[0].Role)
	assert.Contains(t, tr[0].Content, "some Onion")
}

func TestChat_EnterSendsAndAppendsAfterReply(t *testing.T) {
	b := &recordingBroker{}
	c := NewChat(context.Background(), b, agent.Attributes{agent.AttrCrop: "Tomato"})

	typeText(c, "hello")
	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, c.Pending())
	assert.Len(t, c.Transcript(), 1, "transcript grows only when the reply arrives")

	run(t, c, cmd)

	assert.False(t, c.Pending())
	require.Len(t, b.calls, 1)
	assert.Equal(t, "hello", b.calls[0].message)
	assert.Len(t, b.calls[0].transcript, 1)

	tr := c.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, agent.Turn{Role: agent.RoleUser, Content: "hello"}, tr[1])
	assert.Equal(t, agent.Turn{Role: agent.RoleAgent, Content: "Sir ji, ₹24 final."}, tr[2])
}

func TestChat_QuickAction(t *testing.T) {
	b := &recordingBroker{}
	c := NewChat(context.Background(), b, nil)

	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	run(t, c, cmd)

	require.Len(t, b.calls, 1)
	assert.Equal(t, market.QuickActions[2].Message, b.calls[0].message)
}

func TestChat_DigitsTypeWhenInputNotEmpty(t *testing.T) {
	b := &recordingBroker{}
	c := NewChat(context.Background(), b, nil)

	typeText(c, "₹")
	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})

	assert.False(t, c.Pending())
	assert.Empty(t, b.calls)
	assert.Equal(t, "₹2", c.input.Value())
}

func TestChat_IgnoresBlankAndConcurrentSends(t *testing.T) {
	b := &recordingBroker{}
	c := NewChat(context.Background(), b, nil)

	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	typeText(c, "first")
	_, first := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeText(c, "second")
	_, second := c.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotNil(t, first)
	assert.Nil(t, second)
}

func TestChat_Quit(t *testing.T) {
	c := NewChat(context.Background(), &recordingBroker{}, nil)

	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestChat_View(t *testing.T) {
	c := NewChat(context.Background(), &recordingBroker{}, agent.Attributes{agent.AttrCrop: "Grapes"})

	v := c.View()

	assert.Contains(t, v, "Negotiating Grapes")
	assert.Contains(t, v, "Ram Ram Sir ji!")
	assert.True(t, strings.Contains(v, market.QuickActions[0].Label))
}
