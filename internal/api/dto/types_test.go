package dto

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTicketRequestPresence(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		assign NullableString
		tags   StringList
	}{
		{"absent", `{"title":"x"}`, NullableString{}, StringList{}},
		{"null assignee", `{"assignedTo":null}`, NullableString{Set: true, Null: true}, StringList{}},
		{"assignee", `{"assignedTo":"u1"}`, NullableString{Set: true, Value: "u1"}, StringList{}},
		{"single tag", `{"tags":"vpn"}`, NullableString{}, StringList{Set: true, Values: []string{"vpn"}}},
		{"tag array", `{"tags":["a","b"]}`, NullableString{}, StringList{Set: true, Values: []string{"a", "b"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req UpdateTicketRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			if diff := cmp.Diff(tc.assign, req.AssignedTo); diff != "" {
				t.Errorf("assignedTo mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.tags, req.Tags); diff != "" {
				t.Errorf("tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLooseScalars(t *testing.T) {
	var msg CreateMessageRequest
	require.NoError(t, json.Unmarshal([]byte(`{"content":"hi","isInternal":"true"}`), &msg))
	assert.True(t, bool(msg.IsInternal))

	var entry DataEntryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","value":"12.5"}`), &entry))
	require.NotNil(t, entry.Value.Ptr())
	assert.Equal(t, 12.5, *entry.Value.Ptr())

	require.NoError(t, json.Unmarshal([]byte(`{"value":3}`), &entry))
	assert.Equal(t, 3.0, entry.Value.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"value":"abc"}`), &DataEntryRequest{}))
	assert.Error(t, json.Unmarshal([]byte(`{"tags":5}`), &UpdateTicketRequest{}))

	var form NullableString
	form.SetForm("null")
	assert.Equal(t, NullableString{Set: true, Null: true}, form)
}
