package nostr

import (
	"encoding/json"
	"fmt"
)

const (
	labelEvent  = "EVENT"
	labelReq    = "REQ"
	labelClose  = "CLOSE"
	labelEOSE   = "EOSE"
	labelOK     = "OK"
	labelNotice = "NOTICE"
	labelClosed = "CLOSED"
)

// envelope: разобранное сообщение от реле.
type envelope struct {
	Label   string
	SubID   string
	Event   *Event
	EventID string
	OK      bool
	Message string
}

func encodeEvent(ev *Event) ([]byte, error) {
	return json.Marshal([]any{labelEvent, ev})
}

func encodeReq(subID string, filters []Filter) ([]byte, error) {
	msg := make([]any, 0, 2+len(filters))
	msg = append(msg, labelReq, subID)
	for _, f := range filters {
		msg = append(msg, f)
	}
	return json.Marshal(msg)
}

func encodeClose(subID string) ([]byte, error) {
	return json.Marshal([]any{labelClose, subID})
}

func parseEnvelope(data []byte) (*envelope, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrBadMessage)
	}
	env := &envelope{}
	if err := json.Unmarshal(raw[0], &env.Label); err != nil {
		return nil, fmt.Errorf("%w: label: %v", ErrBadMessage, err)
	}

	need := func(n int) error {
		if len(raw) < n {
			return fmt.Errorf("%w: %s: want %d elements, got %d", ErrBadMessage, env.Label, n, len(raw))
		}
		return nil
	}
	str := func(i int, out *string) error {
		if err := json.Unmarshal(raw[i], out); err != nil {
			return fmt.Errorf("%w: %s[%d]: %v", ErrBadMessage, env.Label, i, err)
		}
		return nil
	}

	switch env.Label {
	case labelEvent:
		if err := need(3); err != nil {
			return nil, err
		}
		if err := str(1, &env.SubID); err != nil {
			return nil, err
		}
		env.Event = &Event{}
		if err := json.Unmarshal(raw[2], env.Event); err != nil {
			return nil, fmt.Errorf("%w: EVENT: %v", ErrBadMessage, err)
		}
	case labelEOSE:
		if err := need(2); err != nil {
			return nil, err
		}
		if err := str(1, &env.SubID); err != nil {
			return nil, err
		}
	case labelOK:
		if err := need(3); err != nil {
			return nil, err
		}
		if err := str(1, &env.EventID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw[2], &env.OK); err != nil {
			return nil, fmt.Errorf("%w: OK: %v", ErrBadMessage, err)
		}
		if len(raw) > 3 {
			if err := str(3, &env.Message); err != nil {
				return nil, err
			}
		}
	case labelNotice:
		if err := need(2); err != nil {
			return nil, err
		}
		if err := str(1, &env.Message); err != nil {
			return nil, err
		}
	case labelClosed:
		if err := need(2); err != nil {
			return nil, err
		}
		if err := str(1, &env.SubID); err != nil {
			return nil, err
		}
		if len(raw) > 2 {
			if err := str(2, &env.Message); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown label %q", ErrBadMessage, env.Label)
	}
	return env, nil
}
