package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/pagination"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       any              `json:"data"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
}

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

var jsonNull = []byte("null")

// NullableString distinguishes an absent field from an explicit null.
type NullableString struct {
	Set   bool
	Null  bool
	Value string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		n.Null = true
		n.Value = ""
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// SetForm records a form value. "null" and "" both clear.
func (n *NullableString) SetForm(v string) {
	n.Set = true
	n.Value = strings.TrimSpace(v)
	if n.Value == "null" {
		n.Value = ""
	}
	n.Null = n.Value == ""
}

// StringList accepts a single string or an array of strings.
type StringList struct {
	Set    bool
	Values []string
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(b []byte) error {
	l.Set = true
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, jsonNull):
		l.Values = nil
		return nil
	case len(b) > 0 && b[0] == '[':
		return json.Unmarshal(b, &l.Values)
	default:
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return fmt.Errorf("tags must be a string or an array of strings: %w", err)
		}
		l.Values = []string{one}
		return nil
	}
}

// SetForm records repeated form values.
func (l *StringList) SetForm(values []string) {
	l.Set = true
	l.Values = append([]string(nil), values...)
}

// Bool accepts true/false as JSON booleans or strings, as sent by forms.
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (v *Bool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*v = false
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	parsed, err := ParseBool(s)
	if err != nil {
		return err
	}
	*v = Bool(parsed)
	return nil
}

// ParseBool treats an empty string as false.
func ParseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Number accepts a JSON number or numeric string and records presence.
type Number struct {
	Set   bool
	Value float64
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	return n.SetForm(s)
}

// SetForm parses a numeric string. Empty input leaves the number unset.
func (n *Number) SetForm(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("value must be a number: %w", err)
	}
	n.Set = true
	n.Value = v
	return nil
}

// Ptr returns the value when set.
func (n Number) Ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}
