package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	vars := map[string]string{"question": "Why?", "answer_a": "Because {x}."}

	tests := []struct {
		name    string
		tmpl    string
		want    string
		wantErr string
	}{
		{name: "plain", tmpl: "no placeholders", want: "no placeholders"},
		{name: "substitution", tmpl: "Q: {question}", want: "Q: Why?"},
		{name: "values are not re-expanded", tmpl: "{answer_a}", want: "Because {x}."},
		{name: "escaped braces", tmpl: `{{"score": {question}}}`, want: `{"score": Why?}`},
		{name: "repeated", tmpl: "{question}{question}", want: "Why?Why?"},
		{name: "missing value", tmpl: "{answer_b}", wantErr: "no value for placeholder {answer_b}"},
		{name: "unmatched open", tmpl: "{question", wantErr: "unmatched '{'"},
		{name: "single close", tmpl: "a } b", wantErr: "single '}'"},
		{name: "empty placeholder", tmpl: "{}", wantErr: "invalid placeholder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.tmpl, vars)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{question} {{literal}} {answer_a} {question} {ref_answer_1}")
	assert.Equal(t, []string{"question", "answer_a", "ref_answer_1"}, got)
	assert.Empty(t, Placeholders("nothing here"))
}
