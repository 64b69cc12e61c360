// Package contract is the single definition of the relay to backend hop:
// conversion kinds, multipart field names, headers and the reply envelope.
package contract

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the requested conversion output.
type Kind string

const (
	KindText   Kind = "text"
	KindExcel  Kind = "excel"
	KindSearch Kind = "search"
	KindJSON   Kind = "json"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindText, KindExcel, KindSearch, KindJSON}

// ErrUnsupportedKind is returned by ParseKind for anything outside Kinds.
var ErrUnsupportedKind = errors.New("unsupported conversion type")

// ParseKind normalizes s and checks it against the supported kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

func (k Kind) String() string { return string(k) }

// Multipart fields, identical on both hops.
const (
	FieldFile = "file"
	FieldKind = "type"
	FieldPage = "page"

	// LegacyFieldImage is what some older clients send instead of FieldFile.
	LegacyFieldImage = "image"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderEnvelope  = "X-Envelope-Version"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	XLSXFilename    = "converted.xlsx"
)

// EnvelopeVersion is the current reply envelope version.
const EnvelopeVersion = 1

// Encoding says how Envelope.Payload is to be read.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"  // payload is a JSON string
	EncodingBase64 Encoding = "base64" // payload is a JSON string of std base64
	EncodingJSON   Encoding = "json"   // payload is an arbitrary JSON document
)

// Envelope is the backend's reply for every successful conversion.
type Envelope struct {
	Version    int             `json:"version"`
	Kind       Kind            `json:"kind"`
	Encoding   Encoding        `json:"encoding"`
	Payload    json.RawMessage `json:"payload"`
	ArchiveURL string          `json:"archive_url,omitempty"`
	Cached     bool            `json:"cached,omitempty"`
	Degraded   []string        `json:"degraded,omitempty"`
}

// NewTextEnvelope wraps a UTF-8 string payload.
func NewTextEnvelope(kind Kind, text string) Envelope {
	b, _ := json.Marshal(text)
	return Envelope{Version: EnvelopeVersion, Kind: kind, Encoding: EncodingUTF8, Payload: b}
}

// NewBinaryEnvelope wraps raw bytes as base64.
func NewBinaryEnvelope(kind Kind, data []byte) Envelope {
	b, _ := json.Marshal(base64.StdEncoding.EncodeToString(data))
	return Envelope{Version: EnvelopeVersion, Kind: kind, Encoding: EncodingBase64, Payload: b}
}

// NewJSONEnvelope marshals v as the payload.
func NewJSONEnvelope(kind Kind, v any) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Envelope{Version: EnvelopeVersion, Kind: kind, Encoding: EncodingJSON, Payload: b}, nil
}

// Text returns the payload of a utf-8 envelope.
func (e Envelope) Text() (string, error) {
	if e.Encoding != EncodingUTF8 {
		return "", fmt.Errorf("envelope encoding is %q, not %q", e.Encoding, EncodingUTF8)
	}
	var s string
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return "", fmt.Errorf("decode text payload: %w", err)
	}
	return s, nil
}

// Bytes returns the decoded payload of a base64 envelope.
func (e Envelope) Bytes() ([]byte, error) {
	if e.Encoding != EncodingBase64 {
		return nil, fmt.Errorf("envelope encoding is %q, not %q", e.Encoding, EncodingBase64)
	}
	var s string
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return nil, fmt.Errorf("decode binary payload: %w", err)
	}
	return base64.StdEncoding.DecodeString(s)
}

// Validate checks the envelope is one this version understands.
func (e Envelope) Validate() error {
	if e.Version != EnvelopeVersion {
		return fmt.Errorf("unsupported envelope version %d", e.Version)
	}
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	switch e.Encoding {
	case EncodingUTF8, EncodingBase64, EncodingJSON:
	default:
		return fmt.Errorf("unknown envelope encoding %q", e.Encoding)
	}
	if len(e.Payload) == 0 {
		return errors.New("envelope payload is empty")
	}
	return nil
}

// ErrorBody is the JSON error shape on both hops.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
