package contract

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"text": KindText, " Excel ": KindExcel, "SEARCH": KindSearch, "json": KindJSON} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("pdf"); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("want ErrUnsupportedKind, got %v", err)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	text := NewTextEnvelope(KindText, "héllo\nworld")
	if s, err := text.Text(); err != nil || s != "héllo\nworld" {
		t.Fatalf("Text() = %q, %v", s, err)
	}
	bin := NewBinaryEnvelope(KindExcel, []byte{0x50, 0x4b, 0x00, 0xff})
	if b, err := bin.Bytes(); err != nil || string(b) != "PK\x00\xff" {
		t.Fatalf("Bytes() = %q, %v", b, err)
	}
	doc, err := NewJSONEnvelope(KindSearch, map[string]any{"labels": []any{}})
	if err != nil || string(doc.Payload) != `{"labels":[]}` {
		t.Fatalf("json payload = %s, %v", doc.Payload, err)
	}
	for _, env := range []Envelope{text, bin, doc} {
		if err := env.Validate(); err != nil {
			t.Fatalf("%s envelope invalid: %v", env.Encoding, err)
		}
	}
}

func TestEnvelopeWrongEncoding(t *testing.T) {
	if _, err := NewBinaryEnvelope(KindExcel, []byte("x")).Text(); err == nil {
		t.Fatal("Text() on base64 envelope should fail")
	}
	if _, err := NewTextEnvelope(KindText, "x").Bytes(); err == nil {
		t.Fatal("Bytes() on utf-8 envelope should fail")
	}
	bad := Envelope{Version: EnvelopeVersion, Kind: KindExcel, Encoding: EncodingBase64, Payload: json.RawMessage(`"%%%"`)}
	if _, err := bad.Bytes(); err == nil {
		t.Fatal("Bytes() should reject invalid base64")
	}
}

func TestEnvelopeValidate(t *testing.T) {
	ok := NewTextEnvelope(KindText, "x")
	cases := []struct {
		name string
		mod  func(*Envelope)
	}{
		{"bad version", func(e *Envelope) { e.Version = 2 }},
		{"zero version", func(e *Envelope) { e.Version = 0 }},
		{"unknown kind", func(e *Envelope) { e.Kind = "pdf" }},
		{"unknown encoding", func(e *Envelope) { e.Encoding = "hex" }},
		{"empty payload", func(e *Envelope) { e.Payload = nil }},
	}
	for _, tc := range cases {
		env := ok
		tc.mod(&env)
		if err := env.Validate(); err == nil {
			t.Fatalf("%s: Validate() = nil", tc.name)
		}
	}
}
