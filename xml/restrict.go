package xml

import (
	"encoding/xml"
	"errors"
	"io"
)

// ProtocolError is returned by RestrictedReader when an inbound stream
// violates the XMPP restricted-XML subset: no DTDs, no processing
// instructions, no comments, no external entities, UTF-8 only. It carries
// the stream-level error condition its caller should emit.
type ProtocolError struct {
	Condition string
	Err       error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "xml: " + e.Condition + ": " + e.Err.Error()
	}
	return "xml: " + e.Condition
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Conditions mirror the stream-level error conditions of RFC 6120 §4.9.3
// that a malformed frame can trigger.
const (
	CondBadFormat     = "bad-format"
	CondNotWellFormed = "not-well-formed"
	CondRestrictedXML = "restricted-xml"
)

// RestrictedReader wraps an encoding/xml.Decoder so that it enforces the
// XMPP restricted-XML subset while streaming: a stanza event surfaces as
// soon as its end tag is seen, without waiting for the stream to close.
type RestrictedReader struct {
	dec *xml.Decoder
}

// NewRestrictedReader creates a streaming reader over r.
func NewRestrictedReader(r io.Reader) *RestrictedReader {
	d := xml.NewDecoder(r)
	// encoding/xml never resolves external entities or DTD subsets on its
	// own; Entity only supplies replacement text for references already
	// present in the document, so leaving it nil makes undeclared entity
	// references (beyond the five XML default entities) a decode error
	// instead of a silent expansion.
	d.Strict = true
	return &RestrictedReader{dec: d}
}

// Token reads the next token, rejecting anything outside the restricted
// subset (comments, processing instructions, directives/DTDs).
func (r *RestrictedReader) Token() (xml.Token, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return nil, &ProtocolError{Condition: CondNotWellFormed, Err: err}
			}
			return nil, &ProtocolError{Condition: CondBadFormat, Err: err}
		}
		switch tok.(type) {
		case xml.Comment:
			return nil, &ProtocolError{Condition: CondRestrictedXML, Err: errors.New("comments are not permitted in an XMPP stream")}
		case xml.ProcInst:
			return nil, &ProtocolError{Condition: CondRestrictedXML, Err: errors.New("processing instructions are not permitted in an XMPP stream")}
		case xml.Directive:
			return nil, &ProtocolError{Condition: CondRestrictedXML, Err: errors.New("DTDs are not permitted in an XMPP stream")}
		default:
			return tok, nil
		}
	}
}

// Decoder exposes the underlying decoder for DecodeElement/Skip callers
// that already filtered the opening StartElement through Token.
func (r *RestrictedReader) Decoder() *xml.Decoder {
	return r.dec
}
