package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalDistinguishesOmittedNullAndSet(t *testing.T) {
	var patch RequestPatch
	err := json.Unmarshal([]byte(`{"status": "in_progress", "assignee_name": null, "location": ""}`), &patch)
	require.NoError(t, err)

	assert.True(t, patch.Status.Set)
	assert.False(t, patch.Status.Null)
	assert.Equal(t, RequestStatusInProgress, patch.Status.Value)

	assert.True(t, patch.AssigneeName.Set)
	assert.True(t, patch.AssigneeName.Null)
	assert.False(t, patch.AssigneeName.HasValue())

	assert.True(t, patch.Location.HasValue())
	assert.Equal(t, "", patch.Location.Value)

	assert.False(t, patch.Category.Set)
	assert.False(t, patch.EventID.Set)
	assert.False(t, patch.AssigneeTeam.Set)
}

func TestOptionalRejectsWrongType(t *testing.T) {
	var patch RequestPatch
	err := json.Unmarshal([]byte(`{"location": 12}`), &patch)
	require.Error(t, err)
}

func TestOptionalMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Optional[string] `json:"a"`
		B Optional[string] `json:"b"`
		C Optional[int]    `json:"c"`
	}{A: Some("x"), B: Null[string]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "x", "b": null, "c": null}`, string(out))
}

func TestRequestPatchUpdates(t *testing.T) {
	patch := RequestPatch{
		Status:       Some(RequestStatusCompleted),
		AssigneeTeam: Null[string](),
		AssigneeName: Some("M. Tari"),
	}

	updates := patch.Updates()
	assert.Equal(t, map[string]interface{}{
		"status":        "completed",
		"assignee_team": nil,
		"assignee_name": "M. Tari",
	}, updates)
	assert.False(t, patch.Empty())
	assert.True(t, RequestPatch{}.Empty())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, EventStatusActive.Valid())
	assert.False(t, EventStatus("archived").Valid())
	assert.True(t, RequestStatusInProgress.Valid())
	assert.False(t, RequestStatus("done").Valid())
	assert.True(t, CategoryTransport.Valid())
	assert.False(t, Category("fuel").Valid())
	assert.True(t, UrgencyHigh.Valid())
	assert.False(t, Urgency("critical").Valid())
}
