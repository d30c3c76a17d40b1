package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnexpectedShape = errors.New("unexpected response shape")

// Failure is the single error type produced at the network boundary. Detail
// carries the backend's own message when it sent one.
type Failure struct {
	Op     string
	Status int // 0 when no response was received
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Op)
	if f.Status != 0 {
		fmt.Fprintf(&b, ": status %d", f.Status)
	}
	if f.Detail != "" {
		b.WriteString(": " + f.Detail)
	}
	if f.Err != nil {
		b.WriteString(": " + f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// Transport reports whether the backend was never reached.
func (f *Failure) Transport() bool {
	return f.Status == 0 && !errors.Is(f.Err, ErrUnexpectedShape)
}

// Message returns the backend detail, or fallback when there is none.
func (f *Failure) Message(fallback string) string {
	if f.Detail != "" {
		return f.Detail
	}
	return fallback
}

// UserMessage extracts a displayable message from any error.
func UserMessage(err error, fallback string) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message(fallback)
	}
	return fallback
}

// parseDetail understands FastAPI style {"detail": "..."} and
// {"detail": [{"msg": "..."}]} bodies as well as {"message": "..."}.
func parseDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
