package relay

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/httpmw"
)

// Headers the relay adds when translating an envelope.
const (
	HeaderArchiveURL = "X-Archive-Url"
	HeaderCache      = "X-Cache"
	HeaderDegraded   = "X-Degraded"
)

// textResult is the client-facing shape for text conversions.
type textResult struct {
	Result string `json:"result"`
}

// normalize turns a backend reply into the client-facing response and
// returns a short outcome label for metrics.
func normalize(w http.ResponseWriter, kind contract.Kind, rep reply) (string, error) {
	if rep.status < 200 || rep.status > 299 {
		httpmw.WriteError(w, rep.status, contract.ErrorBody{Error: "Conversion failed", Details: backendDetails(rep)})
		return "backend_error", nil
	}

	if env, ok := asEnvelope(rep); ok {
		return "envelope", writeEnvelope(w, env)
	}

	if !isJSON(rep.header.Get("Content-Type")) {
		writeBinary(w, kind, rep.header.Get("Content-Type"), rep.body)
		return "binary", nil
	}

	var legacy struct {
		Result *string `json:"result"`
	}
	if err := json.Unmarshal(rep.body, &legacy); err == nil && legacy.Result != nil {
		if decoded, ok := decodeBase64Text(*legacy.Result); ok {
			httpmw.WriteJSON(w, http.StatusOK, textResult{Result: decoded})
			return "decoded", nil
		}
	}
	writeRawJSON(w, rep.body)
	return "passthrough", nil
}

// asEnvelope recognizes a versioned backend reply.
func asEnvelope(rep reply) (contract.Envelope, bool) {
	if rep.header.Get(contract.HeaderEnvelope) == "" || !isJSON(rep.header.Get("Content-Type")) {
		return contract.Envelope{}, false
	}
	var env contract.Envelope
	if err := json.Unmarshal(rep.body, &env); err != nil {
		return contract.Envelope{}, false
	}
	if env.Validate() != nil {
		return contract.Envelope{}, false
	}
	return env, true
}

func writeEnvelope(w http.ResponseWriter, env contract.Envelope) error {
	switch env.Encoding {
	case contract.EncodingUTF8:
		text, err := env.Text()
		if err != nil {
			return err
		}
		setEnvelopeHeaders(w, env)
		httpmw.WriteJSON(w, http.StatusOK, textResult{Result: text})
	case contract.EncodingBase64:
		data, err := env.Bytes()
		if err != nil {
			return err
		}
		setEnvelopeHeaders(w, env)
		writeBinary(w, env.Kind, contract.XLSXContentType, data)
	case contract.EncodingJSON:
		setEnvelopeHeaders(w, env)
		writeRawJSON(w, env.Payload)
	default:
		return fmt.Errorf("unknown envelope encoding %q", env.Encoding)
	}
	return nil
}

// setEnvelopeHeaders is called only once the payload is known to decode.
func setEnvelopeHeaders(w http.ResponseWriter, env contract.Envelope) {
	if env.ArchiveURL != "" {
		w.Header().Set(HeaderArchiveURL, env.ArchiveURL)
	}
	if env.Cached {
		w.Header().Set(HeaderCache, "hit")
	}
	if len(env.Degraded) > 0 {
		w.Header().Set(HeaderDegraded, strings.Join(env.Degraded, ","))
	}
}

// decodeBase64Text decodes s once if it is strict standard base64 of
// valid UTF-8.
func decodeBase64Text(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil || !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func writeBinary(w http.ResponseWriter, kind contract.Kind, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if kind == contract.KindExcel || strings.HasPrefix(contentType, contract.XLSXContentType) {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": contract.XLSXFilename}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeRawJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

// backendDetails picks the most useful message out of an error reply.
func backendDetails(rep reply) string {
	var body contract.ErrorBody
	if err := json.Unmarshal(rep.body, &body); err == nil && body.Error != "" {
		if body.Details != "" {
			return body.Error + ": " + body.Details
		}
		return body.Error
	}
	msg := strings.TrimSpace(string(rep.body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(rep.status)
	}
	return msg
}
