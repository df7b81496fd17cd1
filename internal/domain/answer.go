package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is recorded when an answer carries no language tag.
const DefaultLanguage = "NA"

// QuestionID identifies a question within a question set. Source files
// use both numeric and string identifiers, so the raw literal is kept and
// compared textually.
type QuestionID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (q *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question_id must be a string or number: %w", err)
	}
	*q = QuestionID(n.String())
	return nil
}

// MarshalJSON writes numeric identifiers as numbers. Records remember
// whether their id was read as a JSON string and keep that form instead.
func (q QuestionID) MarshalJSON() ([]byte, error) {
	if q != "" && json.Valid([]byte(q)) && isNumberLiteral(string(q)) {
		return []byte(q), nil
	}
	return json.Marshal(string(q))
}

func isNumberLiteral(s string) bool {
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}

// decodeQuestionID reads a raw question_id and reports whether it was
// written as a JSON string.
func decodeQuestionID(raw json.RawMessage) (QuestionID, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	var q QuestionID
	if err := q.UnmarshalJSON(raw); err != nil {
		return "", false, err
	}
	return q, raw[0] == '"', nil
}

func encodeQuestionID(q QuestionID, quoted bool) (json.RawMessage, error) {
	if quoted {
		return json.Marshal(string(q))
	}
	return q.MarshalJSON()
}

// marshalRecord encodes v without HTML escaping, matching the JSON-lines
// writer.
func marshalRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Categories is the category label of a question or template. It is
// written either as a single string or as a list of strings; the original
// shape is preserved on output.
type Categories struct {
	values []string
	list   bool
}

// Category returns a single-label Categories. An empty label is the zero
// Categories.
func Category(label string) Categories {
	if label == "" {
		return Categories{}
	}
	return Categories{values: []string{label}}
}

// CategoryList returns a list-shaped Categories.
func CategoryList(labels ...string) Categories {
	return Categories{values: slices.Clone(labels), list: true}
}

// Contains reports whether label is one of the categories. A single
// label matches only by equality.
func (c Categories) Contains(label string) bool { return slices.Contains(c.values, label) }

// Matches reports whether any of other's labels is contained in c.
// A single-label other is the common case: the question's category.
func (c Categories) Matches(other Categories) bool {
	for _, v := range other.values {
		if c.Contains(v) {
			return true
		}
	}
	return false
}

// Values returns a copy of the labels.
func (c Categories) Values() []string { return slices.Clone(c.values) }

// IsZero reports whether no label is set.
func (c Categories) IsZero() bool { return len(c.values) == 0 }

// String joins the labels with commas.
func (c Categories) String() string {
	var buf bytes.Buffer
	for i, v := range c.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(v)
	}
	return buf.String()
}

// MarshalJSON keeps the string or list shape read from the source.
func (c Categories) MarshalJSON() ([]byte, error) {
	if c.list {
		if c.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.values)
	}
	if len(c.values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(c.values[0])
}

// UnmarshalJSON accepts a string, a list of strings or null. An empty
// string and null both decode to the zero Categories.
func (c *Categories) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = Categories{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var vs []string
		if err := json.Unmarshal(data, &vs); err != nil {
			return fmt.Errorf("category list: %w", err)
		}
		*c = Categories{values: vs, list: true}
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("category must be a string or list of strings: %w", err)
		}
		*c = Category(s)
		return nil
	}
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (c *Categories) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var vs []string
		if err := node.Decode(&vs); err != nil {
			return fmt.Errorf("category list: %w", err)
		}
		*c = Categories{values: vs, list: true}
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			*c = Categories{}
			return nil
		}
		*c = Category(node.Value)
	default:
		return fmt.Errorf("category must be a string or list of strings, got yaml kind %d", node.Kind)
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (c Categories) MarshalYAML() (any, error) {
	if c.list {
		return c.values, nil
	}
	if len(c.values) == 0 {
		return "", nil
	}
	return c.values[0], nil
}

// AnswerRecord is one model's response to one question, as read from an
// answer file.
type AnswerRecord struct {
	QuestionID QuestionID `json:"question_id"`
	ModelID    string     `json:"model_id"`
	Text       string     `json:"text"`
	Answer     string     `json:"answer"`
	Category   Categories `json:"category"`
	Language   string     `json:"language,omitempty"`

	// idQuoted is set when question_id was read as a JSON string.
	idQuoted bool
}

// MarshalJSON writes question_id in the form it was read in.
func (a AnswerRecord) MarshalJSON() ([]byte, error) {
	type plain AnswerRecord
	id, err := encodeQuestionID(a.QuestionID, a.idQuoted)
	if err != nil {
		return nil, err
	}
	return marshalRecord(struct {
		QuestionID json.RawMessage `json:"question_id"`
		plain
	}{id, plain(a)})
}

// UnmarshalJSON records whether question_id was a string or a number.
func (a *AnswerRecord) UnmarshalJSON(data []byte) error {
	type plain AnswerRecord
	aux := struct {
		QuestionID json.RawMessage `json:"question_id"`
		*plain
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	q, quoted, err := decodeQuestionID(aux.QuestionID)
	if err != nil {
		return err
	}
	a.QuestionID, a.idQuoted = q, quoted
	return nil
}

// LanguageOrDefault returns the language tag or DefaultLanguage.
func (a AnswerRecord) LanguageOrDefault() string {
	if a.Language == "" {
		return DefaultLanguage
	}
	return a.Language
}

// PrimaryCategory is the label used for template selection.
func (a AnswerRecord) PrimaryCategory() string {
	if a.Category.IsZero() {
		return ""
	}
	return a.Category.values[0]
}

// MergedRow aligns every competitor's answer to the same question.
// Answers[i] belongs to competitor i.
type MergedRow struct {
	QuestionID QuestionID
	Answers    []AnswerRecord
}
