package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrMalformed marks any inbound frame that cannot become a Request.
var ErrMalformed = errors.New("malformed request")

var validate = validator.New()

// Decode parses a raw inbound frame into its typed Request.
func Decode(raw []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	req, err := newRequest(env.Action)
	if err != nil {
		return nil, err
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: %s requires data", ErrMalformed, env.Action)
	}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return derefRequest(req), nil
}

// DecodeEvent splits an outbound frame into its envelope. Used by clients.
func DecodeEvent(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Action == "" {
		return nil, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	return &env, nil
}

func newRequest(action Action) (interface{}, error) {
	switch action {
	case ActionOpenNotebook:
		return &OpenNotebook{}, nil
	case ActionCloseNotebook:
		return &CloseNotebook{}, nil
	case ActionCreateCell:
		return &CreateCell{}, nil
	case ActionLockCell:
		return &LockCell{}, nil
	case ActionUnlockCell:
		return &UnlockCell{}, nil
	case ActionEditCell:
		return &EditCell{}, nil
	case ActionUpdateOutput:
		return &UpdateOutput{}, nil
	case ActionShareNotebook:
		return &ShareNotebook{}, nil
	case ActionSendChatMessage:
		return &SendChatMessage{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing action", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformed, action)
	}
}

func derefRequest(req interface{}) Request {
	switch r := req.(type) {
	case *OpenNotebook:
		return *r
	case *CloseNotebook:
		return *r
	case *CreateCell:
		return *r
	case *LockCell:
		return *r
	case *UnlockCell:
		return *r
	case *EditCell:
		return *r
	case *UpdateOutput:
		return *r
	case *ShareNotebook:
		return *r
	case *SendChatMessage:
		return *r
	}
	return nil
}

// Unmarshal decodes an event payload into v.
func Unmarshal[T any](env *Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Action, err)
	}
	return v, nil
}
