// Package streamerror constructs XMPP stream-level fatal errors
// (RFC 6120 §4.9): a <stream:error/> always precedes a stream close.
package streamerror

import (
	"encoding/xml"
	"fmt"

	"github.com/waddle-im/waddle/internal/ns"
)

// Condition constants, RFC 6120 §4.9.3.
const (
	BadFormat            = "bad-format"
	NotWellFormed        = "not-well-formed"
	RestrictedXML        = "restricted-xml"
	PolicyViolation      = "policy-violation"
	HostUnknown          = "host-unknown"
	NotAuthorized        = "not-authorized"
	Conflict             = "conflict"
	ResourceConstraint   = "resource-constraint"
	SystemShutdown       = "system-shutdown"
	InvalidNamespace     = "invalid-namespace"
	InvalidXML           = "invalid-xml"
	UnsupportedVersion   = "unsupported-version"
	ConnectionTimeout    = "connection-timeout"
	InternalServerError  = "internal-server-error"
	SeeOtherHost         = "see-other-host"
	Reset                = "reset"
)

// Error is a stream-level fatal error: sending it to a peer is always
// immediately followed by closing the stream.
type Error struct {
	Condition string
	Text      string
}

// New constructs a stream Error for the given condition.
func New(condition, text string) *Error {
	return &Error{Condition: condition, Text: text}
}

func (e *Error) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("stream error: %s: %s", e.Condition, e.Text)
	}
	return fmt.Sprintf("stream error: %s", e.Condition)
}

// Bytes renders the <stream:error/> element ready to write to the wire,
// immediately followed by a </stream:stream> close by the caller.
func (e *Error) Bytes() []byte {
	var buf []byte
	buf = append(buf, `<stream:error>`...)
	buf = append(buf, `<`...)
	buf = append(buf, e.Condition...)
	buf = append(buf, ` xmlns='`...)
	buf = append(buf, ns.Streams...)
	buf = append(buf, `'/>`...)
	if e.Text != "" {
		buf = append(buf, `<text xmlns='`...)
		buf = append(buf, ns.Streams...)
		buf = append(buf, `' xml:lang='en'>`...)
		buf = append(buf, xmlEscape(e.Text)...)
		buf = append(buf, `</text>`...)
	}
	buf = append(buf, `</stream:error>`...)
	return buf
}

func xmlEscape(s string) string {
	var b []byte
	xmlEsc := xml.EscapeText
	w := new(byteSliceWriter)
	_ = xmlEsc(w, []byte(s))
	b = w.b
	return string(b)
}

type byteSliceWriter struct{ b []byte }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
