package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
	}{
		{
			name:    "plain JSON",
			input:   `{"crop_type": "Tomato"}`,
			wantKey: "crop_type",
		},
		{
			name:    "markdown code block",
			input:   "```json\n{\"crop_type\": \"Tomato\"}\n```",
			wantKey: "crop_type",
		},
		{
			name:    "prose around the object",
			input:   "Here is my assessment:\n{\"fci_grade\": \"Grade A\"}\nLet me know if you need more.",
			wantKey: "fci_grade",
		},
		{
			name:    "comments and trailing commas",
			input:   "```json\n{\n  \"visual_defects\": [\n    \"spots\",  // leaf\n    \"cracks\",\n  ],\n}\n```",
			wantKey: "visual_defects",
		},
		{
			name:    "URL in string survives",
			input:   `{"source": "https://example.com/blight"} // trailing`,
			wantKey: "source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := ExtractJSON(tt.input)
			require.NotEmpty(t, raw)

			var parsed map[string]any
			require.NoError(t, json.Unmarshal([]byte(raw), &parsed), "raw: %s", raw)
			assert.Contains(t, parsed, tt.wantKey)
		})
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	assert.Empty(t, ExtractJSON(""))
	assert.Empty(t, ExtractJSON("I could not see a crop in this image."))
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Verified   bool   `json:"verified"`
		Confidence string `json:"confidence"`
	}

	err := DecodeJSON("```json\n{\"verified\": true, \"confidence\": \"High\",}\n```", &out)
	require.NoError(t, err)
	assert.True(t, out.Verified)
	assert.Equal(t, "High", out.Confidence)

	err = DecodeJSON("no json here", &out)
	assert.True(t, errors.Is(err, ErrNoJSON))

	err = DecodeJSON(`{"verified": "maybe"}`, &out)
	assert.Error(t, err)
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"a",  // note`, `"a",`},
		{`"url": "http://x.io/a"`, `"url": "http://x.io/a"`},
		{`"q": "say \"//\"" // c`, `"q": "say \"//\""`},
		{`no comment`, `no comment`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripLineComment(tt.in))
	}
}
