package frappe

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Error kinds. A *Error always unwraps to exactly one of these.
var (
	ErrLogin          = errors.New("login failed")
	ErrCreate         = errors.New("create failed")
	ErrRead           = errors.New("read failed")
	ErrUpdate         = errors.New("update failed")
	ErrDelete         = errors.New("delete failed")
	ErrNotImplemented = errors.New("not implemented")
)

// Error is a transport failure classified by the operation that caused it.
type Error struct {
	Kind    error
	Doctype string
	Name    string
	Status  int

	// Message is the human readable reason parsed from the error envelope.
	Message string
	// Raw is the untouched response body.
	Raw []byte
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Doctype != "" {
		b.WriteString(" (")
		b.WriteString(e.Doctype)
		if e.Name != "" {
			b.WriteString(" ")
			b.WriteString(e.Name)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

type errorEnvelope struct {
	ExcType        string `json:"exc_type"`
	Exception      string `json:"exception"`
	Message        string `json:"message"`
	ServerMessages string `json:"_server_messages"`
}

// parseErrorMessage extracts the most specific message Frappe put into an
// error response. _server_messages is a JSON encoded list of JSON encoded objects.
func parseErrorMessage(status int, body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return http.StatusText(status)
	}

	if env.ServerMessages != "" {
		var encoded []string
		if err := json.Unmarshal([]byte(env.ServerMessages), &encoded); err == nil {
			msgs := make([]string, 0, len(encoded))
			for _, raw := range encoded {
				var m struct {
					Message string `json:"message"`
				}
				if err := json.Unmarshal([]byte(raw), &m); err == nil && m.Message != "" {
					msgs = append(msgs, m.Message)
				} else if raw != "" {
					msgs = append(msgs, raw)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	switch {
	case env.Exception != "":
		return env.Exception
	case env.Message != "":
		return env.Message
	case env.ExcType != "":
		return env.ExcType
	}

	return http.StatusText(status)
}

// newError classifies a failed response. 501 means the site does not offer
// the operation at all, whatever was attempted.
func newError(kind error, doctype, name string, status int, body []byte) *Error {
	if status == http.StatusNotImplemented {
		kind = ErrNotImplemented
	}
	return &Error{
		Kind:    kind,
		Doctype: doctype,
		Name:    name,
		Status:  status,
		Message: parseErrorMessage(status, body),
		Raw:     body,
	}
}

func wrapError(kind error, doctype, name string, err error) *Error {
	return &Error{Kind: kind, Doctype: doctype, Name: name, Err: err}
}
