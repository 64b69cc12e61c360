// Package relay is the authenticated edge: it accepts a client upload,
// forwards it to the conversion backend and shapes the reply for the
// client.
package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/filetype"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/httpmw"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/metrics"
)

type Options struct {
	BackendURL     string
	Timeout        time.Duration
	MaxUploadBytes int64
	// HTTPClient defaults to a plain client; the per-request timeout is
	// applied through the request context.
	HTTPClient *http.Client
}

type Relay struct {
	backendURL string
	timeout    time.Duration
	maxUpload  int64
	client     *http.Client
}

func New(opts Options) *Relay {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Relay{
		backendURL: strings.TrimRight(opts.BackendURL, "/"),
		timeout:    opts.Timeout,
		maxUpload:  opts.MaxUploadBytes,
		client:     client,
	}
}

// RegisterRoutes mounts the conversion endpoint behind authn and the
// public health endpoint.
func (rl *Relay) RegisterRoutes(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	mux.HandleFunc("/health", httpmw.HealthHandler)
	mux.Handle("/api/convert", authn(http.HandlerFunc(rl.handleConvert)))
}

func (rl *Relay) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	l := httpmw.Logger(r.Context())

	o, body, status := rl.readUpload(w, r)
	if body != nil {
		metrics.ObserveRelay("unknown", "rejected", time.Since(start))
		httpmw.WriteError(w, status, *body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), rl.timeout)
	defer cancel()
	rep, err := rl.forward(ctx, o)
	if err != nil {
		var hop *HopError
		if !errors.As(err, &hop) {
			hop = &HopError{Kind: HopConnection, Err: err}
		}
		metrics.ObserveRelay(o.kind.String(), string(hop.Kind), time.Since(start))
		l.Error().Err(err).Str("kind", o.kind.String()).Str("backend", rl.backendURL).Msg("backend request failed")
		if hop.Kind == HopTimeout {
			httpmw.WriteError(w, http.StatusGatewayTimeout, contract.ErrorBody{Error: "Request timeout", Code: string(HopTimeout)})
			return
		}
		httpmw.WriteError(w, http.StatusInternalServerError, contract.ErrorBody{Error: "Connection failed", Code: string(HopConnection)})
		return
	}

	outcome, err := normalize(w, o.kind, rep)
	if err != nil {
		// Nothing has been written yet when normalize fails.
		l.Error().Err(err).Msg("malformed backend envelope")
		httpmw.WriteError(w, http.StatusInternalServerError, contract.ErrorBody{Error: "Conversion failed"})
		outcome = "bad_envelope"
	}
	metrics.ObserveRelay(o.kind.String(), outcome, time.Since(start))
	l.Info().
		Str("kind", o.kind.String()).
		Int("backend_status", rep.status).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("relayed conversion")
}

func (rl *Relay) readUpload(w http.ResponseWriter, r *http.Request) (outbound, *contract.ErrorBody, int) {
	missing := &contract.ErrorBody{Error: "Missing file or conversion type"}

	r.Body = http.MaxBytesReader(w, r.Body, rl.maxUpload)
	if err := r.ParseMultipartForm(rl.maxUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return outbound{}, missing, http.StatusBadRequest
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return outbound{}, &contract.ErrorBody{Error: "File too large"}, http.StatusRequestEntityTooLarge
		}
		return outbound{}, &contract.ErrorBody{Error: "File upload error"}, http.StatusBadRequest
	}

	file, hdr, err := r.FormFile(contract.FieldFile)
	rawKind := r.FormValue(contract.FieldKind)
	if err != nil || strings.TrimSpace(rawKind) == "" {
		return outbound{}, missing, http.StatusBadRequest
	}
	defer file.Close()

	kind, err := contract.ParseKind(rawKind)
	if err != nil {
		return outbound{}, &contract.ErrorBody{Error: "Unsupported conversion type"}, http.StatusBadRequest
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return outbound{}, &contract.ErrorBody{Error: "File upload error"}, http.StatusBadRequest
	}
	if len(data) == 0 {
		return outbound{}, missing, http.StatusBadRequest
	}
	info := filetype.Detect(data, hdr.Filename)
	if !info.Supported {
		return outbound{}, &contract.ErrorBody{Error: "Unsupported file type: " + info.MIMEType}, http.StatusBadRequest
	}

	filename := hdr.Filename
	if filename == "" {
		filename = "upload" + info.Extension
	}
	return outbound{
		kind:        kind,
		filename:    filename,
		contentType: info.MIMEType,
		data:        data,
		page:        r.FormValue(contract.FieldPage),
		requestID:   httpmw.RequestIDFromContext(r.Context()),
	}, nil, 0
}
