// Package backend serves POST /api/convert/{kind}: it accepts an uploaded
// image or PDF, runs the conversion and replies with a contract.Envelope.
package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/filetype"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/httpmw"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/imagerender"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/metrics"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/storage"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/store"
)

// Converter produces an envelope for one image.
type Converter interface {
	Convert(ctx context.Context, kind contract.Kind, image []byte) (contract.Envelope, error)
}

type Dependencies struct {
	Converter Converter
	// Cache and Archive are optional.
	Cache         store.EnvelopeCache
	Archive       storage.Archive
	ArchivePrefix string

	MaxUploadBytes     int64
	ExposeErrorDetails bool
	PDF                imagerender.Options
}

type Server struct {
	deps Dependencies
}

func New(deps Dependencies) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	return &Server{deps: deps}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", httpmw.HealthHandler)
	mux.HandleFunc("/api/convert/", s.handleConvert)
}

// Handler returns the routes wrapped in the standard middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())
	return httpmw.Chain(mux, httpmw.RequestID, httpmw.Recover, httpmw.AccessLog)
}

type upload struct {
	data     []byte
	filename string
	page     int
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	ctx := r.Context()
	l := httpmw.Logger(ctx)

	kind, err := contract.ParseKind(strings.TrimPrefix(r.URL.Path, "/api/convert/"))
	if err != nil {
		httpmw.WriteError(w, http.StatusBadRequest, contract.ErrorBody{Error: "Unsupported conversion type", Code: "unsupported_kind"})
		return
	}

	up, body, status := s.readUpload(w, r)
	if body != nil {
		metrics.ObserveConversion(kind.String(), "rejected", time.Since(start))
		httpmw.WriteError(w, status, *body)
		return
	}

	info := filetype.Detect(up.data, up.filename)
	img, err := imagerender.Prepare(up.data, info, up.page, s.deps.PDF)
	if err != nil {
		metrics.ObserveConversion(kind.String(), "rejected", time.Since(start))
		l.Warn().Err(err).Str("mime", info.MIMEType).Msg("upload rejected")
		httpmw.WriteError(w, http.StatusBadRequest, s.withDetails(prepareErrorBody(err, info), err))
		return
	}

	key := store.Key(kind, img.Bytes)
	if env, ok := s.cached(ctx, key); ok {
		metrics.ObserveConversion(kind.String(), "cached", time.Since(start))
		s.writeEnvelope(w, env)
		return
	}

	env, err := s.deps.Converter.Convert(ctx, kind, img.Bytes)
	if err != nil {
		status, body := classify(kind, err)
		metrics.ObserveConversion(kind.String(), "error", time.Since(start))
		level := zerolog.WarnLevel
		if status >= 500 {
			level = zerolog.ErrorLevel
		}
		l.WithLevel(level).Err(err).Str("kind", kind.String()).Int("status", status).Msg("conversion failed")
		httpmw.WriteError(w, status, s.withDetails(body, err))
		return
	}

	// Partial results are not cached so a recovered detector is retried.
	if s.deps.Cache != nil && len(env.Degraded) == 0 {
		if err := s.deps.Cache.Set(ctx, key, env); err != nil {
			metrics.IncCache("error")
			l.Warn().Err(err).Msg("cache store failed")
		}
	}
	env.ArchiveURL = s.archive(ctx, kind, env)

	metrics.ObserveConversion(kind.String(), "success", time.Since(start))
	l.Info().
		Str("kind", kind.String()).
		Str("mime", info.MIMEType).
		Int("page", img.Page).
		Strs("degraded", env.Degraded).
		Dur("duration", time.Since(start)).
		Msg("conversion complete")
	s.writeEnvelope(w, env)
}

// readUpload returns a non-nil error body when the request carries no
// usable file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, *contract.ErrorBody, int) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return upload{}, &contract.ErrorBody{Error: "No file uploaded", Code: "no_file"}, http.StatusBadRequest
		}
		b := s.withDetails(contract.ErrorBody{Error: "File upload error", Code: "upload"}, err)
		return upload{}, &b, http.StatusBadRequest
	}

	file, hdr, err := r.FormFile(contract.FieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		file, hdr, err = r.FormFile(contract.LegacyFieldImage)
		if err == nil {
			httpmw.Logger(r.Context()).Warn().Msg("upload used deprecated field \"image\"")
		}
	}
	if err != nil {
		return upload{}, &contract.ErrorBody{Error: "No file uploaded", Code: "no_file"}, http.StatusBadRequest
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		b := s.withDetails(contract.ErrorBody{Error: "File upload error", Code: "upload"}, err)
		return upload{}, &b, http.StatusBadRequest
	}
	if len(data) == 0 {
		return upload{}, &contract.ErrorBody{Error: "No file uploaded", Code: "no_file"}, http.StatusBadRequest
	}

	up := upload{data: data, filename: hdr.Filename}
	if p := r.FormValue(contract.FieldPage); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return upload{}, &contract.ErrorBody{Error: "Invalid page number", Code: "bad_page"}, http.StatusBadRequest
		}
		up.page = n
	}
	return up, nil, 0
}

func (s *Server) cached(ctx context.Context, key string) (contract.Envelope, bool) {
	if s.deps.Cache == nil {
		return contract.Envelope{}, false
	}
	env, ok, err := s.deps.Cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.IncCache("error")
		httpmw.Logger(ctx).Warn().Err(err).Msg("cache lookup failed")
		return contract.Envelope{}, false
	case !ok:
		metrics.IncCache("miss")
		return contract.Envelope{}, false
	}
	metrics.IncCache("hit")
	env.Cached = true
	return env, true
}

// archive stores the artifact and returns its URL, or "" on failure.
func (s *Server) archive(ctx context.Context, kind contract.Kind, env contract.Envelope) string {
	if s.deps.Archive == nil {
		return ""
	}
	var (
		data        []byte
		ext         string
		contentType string
		err         error
	)
	switch env.Encoding {
	case contract.EncodingBase64:
		data, err = env.Bytes()
		ext, contentType = ".xlsx", contract.XLSXContentType
	case contract.EncodingUTF8:
		var text string
		text, err = env.Text()
		data, ext, contentType = []byte(text), ".txt", "text/plain; charset=utf-8"
	default:
		data, ext, contentType = env.Payload, ".json", "application/json"
	}
	if err != nil {
		httpmw.Logger(ctx).Warn().Err(err).Msg("archive: bad envelope payload")
		return ""
	}
	name := storage.ObjectName(s.deps.ArchivePrefix, kind.String(), ext, time.Now())
	url, err := s.deps.Archive.Put(ctx, name, contentType, data)
	if err != nil {
		httpmw.Logger(ctx).Warn().Err(err).Str("archive", s.deps.Archive.Kind()).Msg("archive upload failed")
		return ""
	}
	return url
}

func (s *Server) writeEnvelope(w http.ResponseWriter, env contract.Envelope) {
	w.Header().Set(contract.HeaderEnvelope, strconv.Itoa(contract.EnvelopeVersion))
	httpmw.WriteJSON(w, http.StatusOK, env)
}

func (s *Server) withDetails(b contract.ErrorBody, err error) contract.ErrorBody {
	if s.deps.ExposeErrorDetails && err != nil {
		b.Details = err.Error()
	}
	return b
}
