package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	results []Result
	err     error
	calls   int
}

func (s *stubProvider) Search(context.Context, string) ([]Result, error) {
	s.calls++
	return s.results, s.err
}

func TestFormat(t *testing.T) {
	text := Format([]Result{
		{Title: "Tomato rates Nashik", URL: "https://agmarknet.example/tomato", Snippet: "Modal price ₹2,200/quintal"},
		{Title: "", Snippet: ""},
		{Title: "Only a title"},
		{Snippet: "Only a snippet", URL: "https://x.example"},
	})

	assert.Equal(t,
		"Tomato rates Nashik: Modal price ₹2,200/quintal (https://agmarknet.example/tomato)\n\n"+
			"Only a title\n\n"+
			"Only a snippet (https://x.example)",
		text)
}

func TestText_Search(t *testing.T) {
	p := &stubProvider{results: []Result{
		{Title: "a", Snippet: "one"},
		{Title: "b", Snippet: "two"},
		{Title: "c", Snippet: "three"},
	}}

	text, err := NewText(p, 2).Search(context.Background(), "onion price")
	require.NoError(t, err)
	assert.Equal(t, "a: one\n\nb: two", text)
}

func TestText_NoResults(t *testing.T) {
	_, err := NewText(&stubProvider{}, 3).Search(context.Background(), "q")
	assert.True(t, errors.Is(err, ErrNoResults))
}

func TestText_PropagatesError(t *testing.T) {
	boom := errors.New("timeout")
	_, err := NewText(&stubProvider{err: boom}, 3).Search(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}
