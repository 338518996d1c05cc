package agent

import (
	"strings"
	"unicode/utf8"
)

// Role identifies the speaker of a conversation turn.
type Role string

// The two speakers a normalized conversation knows about.
const (
	// RoleUser is the farmer or any caller label not recognized as the agent.
	RoleUser Role = "user"
	// RoleAgent is the broker or advisor speaking.
	RoleAgent Role = "agent"
)

// NormalizeRole maps a caller's role label onto User or Agent. Labels are
// matched case-insensitively; anything that is not a known agent label is
// treated as the user.
func NormalizeRole(label string) Role {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "agent", "assistant", "ai", "bot", "model", "broker":
		return RoleAgent
	default:
		return RoleUser
	}
}

// Turn is one normalized conversation entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn builds a Turn from a free-form role label.
func NewTurn(label, content string) Turn {
	return Turn{Role: NormalizeRole(label), Content: content}
}

// Topic attribute keys.
const (
	AttrCrop       = "crop"
	AttrGrade      = "grade"
	AttrDisease    = "disease"
	AttrLocation   = "location"
	AttrSearchTerm = "search_term"
)

// Attributes are the named facts about the subject under discussion.
type Attributes map[string]string

// Get returns the trimmed value for key, or fallback when it is empty.
func (a Attributes) Get(key, fallback string) string {
	if v := strings.TrimSpace(a[key]); v != "" {
		return v
	}
	return fallback
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// minResearchLen is the length above which seeded research text counts as
// present even without the Researched flag.
const minResearchLen = 10

// State is the per-invocation pipeline state. It is owned by one Invoke call.
type State struct {
	Attributes   Attributes
	Conversation []Turn

	// ResearchText is grounding context for synthesis. Written at most once
	// per invocation, by the research node.
	ResearchText string

	// Researched marks ResearchText as complete, whatever its length.
	Researched bool

	// ResultText is the pipeline output, written by the synthesis node.
	ResultText string
}

// NewState copies attrs and conversation into a fresh State.
func NewState(attrs Attributes, conversation []Turn) State {
	return State{
		Attributes:   attrs.Clone(),
		Conversation: append([]Turn(nil), conversation...),
	}
}

// HasResearch reports whether research can be skipped.
func (s State) HasResearch() bool {
	return s.Researched || utf8.RuneCountInString(strings.TrimSpace(s.ResearchText)) > minResearchLen
}

func (s State) clone() State {
	s.Attributes = s.Attributes.Clone()
	s.Conversation = append([]Turn(nil), s.Conversation...)
	return s
}
