package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
)

const userAgent = "ImageAI-App/1.0"

// maxBackendReply bounds how much of a backend reply is buffered.
const maxBackendReply = 64 << 20

// HopKind says how the backend hop failed.
type HopKind string

const (
	HopTimeout    HopKind = "timeout"
	HopConnection HopKind = "connection"
)

// HopError is a failed request to the backend: either it did not answer
// in time or it could not be reached.
type HopError struct {
	Kind HopKind
	Err  error
}

func (e *HopError) Error() string { return fmt.Sprintf("backend %s: %v", e.Kind, e.Err) }
func (e *HopError) Unwrap() error { return e.Err }

func classifyHop(err error) *HopError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &HopError{Kind: HopTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &HopError{Kind: HopTimeout, Err: err}
	}
	return &HopError{Kind: HopConnection, Err: err}
}

// outbound is the upload as re-encoded for the backend.
type outbound struct {
	kind        contract.Kind
	filename    string
	contentType string
	data        []byte
	page        string
	requestID   string
}

// reply is a fully read backend response.
type reply struct {
	status int
	header http.Header
	body   []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(o outbound) (*bytes.Buffer, string, error) {
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		contract.FieldFile, quoteEscaper.Replace(o.filename)))
	h.Set("Content-Type", o.contentType)
	fw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(o.data); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField(contract.FieldKind, o.kind.String()); err != nil {
		return nil, "", err
	}
	if o.page != "" {
		if err := mw.WriteField(contract.FieldPage, o.page); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &b, mw.FormDataContentType(), nil
}

// forward posts the upload to the backend and reads the whole reply
// within ctx's deadline.
func (rl *Relay) forward(ctx context.Context, o outbound) (reply, error) {
	body, ct, err := encodeMultipart(o)
	if err != nil {
		return reply{}, fmt.Errorf("encode upload: %w", err)
	}
	url := rl.backendURL + "/api/convert/" + o.kind.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return reply{}, &HopError{Kind: HopConnection, Err: err}
	}
	req.Header.Set("Content-Type", ct)
	req.Header.Set("User-Agent", userAgent)
	if o.requestID != "" {
		req.Header.Set(contract.HeaderRequestID, o.requestID)
	}

	resp, err := rl.client.Do(req)
	if err != nil {
		return reply{}, classifyHop(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBackendReply))
	if err != nil {
		return reply{}, classifyHop(err)
	}
	return reply{status: resp.StatusCode, header: resp.Header, body: data}, nil
}
