package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotebookSharedRoundTripThroughBusPayload(t *testing.T) {
	evt := NotebookShared{
		NotebookId:   "nb-1",
		NotebookName: "Lab 3",
		SharerName:   "Ada",
		AccessLevel:  "Read Only",
		Emails:       []string{"bob@example.com", "eve@example.com"},
		OccurredAt:   time.Now(),
	}

	raw, err := json.Marshal(evt.Payload())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	got, err := NotebookSharedFrom(BaseEvent{Type: TypeNotebookShared, Data: decoded, OccurredAt: evt.OccurredAt})
	require.NoError(t, err)
	assert.Equal(t, evt, got)
}

func TestNotebookSharedFromRejectsIncompletePayload(t *testing.T) {
	_, err := NotebookSharedFrom(BaseEvent{Data: map[string]interface{}{"notebook_id": "nb-1"}})
	assert.Error(t, err)

	_, err = NotebookSharedFrom(BaseEvent{Data: map[string]interface{}{"notebook_id": "nb-1", "emails": []interface{}{42}}})
	assert.Error(t, err)
}
