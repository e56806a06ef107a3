package events

import (
	"fmt"
	"time"
)

const TypeNotebookShared = "NOTEBOOK_SHARED"

// NotebookShared is raised after users gain access to a notebook.
type NotebookShared struct {
	NotebookId   string
	NotebookName string
	SharerName   string
	AccessLevel  string
	Emails       []string
	OccurredAt   time.Time
}

func (e NotebookShared) EventType() string {
	return TypeNotebookShared
}

func (e NotebookShared) Payload() map[string]interface{} {
	return map[string]interface{}{
		"notebook_id":   e.NotebookId,
		"notebook_name": e.NotebookName,
		"sharer_name":   e.SharerName,
		"access_level":  e.AccessLevel,
		"emails":        e.Emails,
	}
}

func (e NotebookShared) Timestamp() time.Time {
	return e.OccurredAt
}

// NotebookSharedFrom rebuilds the event from a decoded bus payload.
func NotebookSharedFrom(e Event) (NotebookShared, error) {
	if typed, ok := e.(NotebookShared); ok {
		return typed, nil
	}

	data := e.Payload()
	out := NotebookShared{OccurredAt: e.Timestamp()}
	out.NotebookId, _ = data["notebook_id"].(string)
	out.NotebookName, _ = data["notebook_name"].(string)
	out.SharerName, _ = data["sharer_name"].(string)
	out.AccessLevel, _ = data["access_level"].(string)

	switch raw := data["emails"].(type) {
	case []string:
		out.Emails = raw
	case []interface{}:
		for _, v := range raw {
			s, ok := v.(string)
			if !ok {
				return out, fmt.Errorf("notebook shared: email is %T", v)
			}
			out.Emails = append(out.Emails, s)
		}
	}

	if out.NotebookId == "" || len(out.Emails) == 0 {
		return out, fmt.Errorf("notebook shared: incomplete payload")
	}
	return out, nil
}
