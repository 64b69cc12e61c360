package statuscheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/httpmw"
)

// Pinger models the minimal capability we need from Redis and the archive.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates health checks for external dependencies used by the dashboard.
type Checker struct {
	backendURL  string
	redis       Pinger
	archive     Pinger
	archiveKind string
	visionCreds string
	httpClient  *http.Client
}

// Options configures the Checker. Every field is optional.
type Options struct {
	BackendURL  string
	Redis       Pinger
	Archive     Pinger
	ArchiveKind string
	// VisionCredentialsFile is checked for presence only.
	VisionCredentialsFile string
	HTTPClient            *http.Client
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses for the dashboard.
type Summary struct {
	Backend Status `json:"backend"`
	Redis   Status `json:"redis"`
	Archive Status `json:"archive"`
	Vision  Status `json:"vision"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{
		backendURL:  strings.TrimRight(opts.BackendURL, "/"),
		redis:       opts.Redis,
		archive:     opts.Archive,
		archiveKind: opts.ArchiveKind,
		visionCreds: strings.TrimSpace(opts.VisionCredentialsFile),
		httpClient:  client,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Backend: c.checkBackend(ctx),
		Redis:   c.checkPinger(ctx, c.redis, "Connected"),
		Archive: c.checkArchive(ctx),
		Vision:  c.checkVision(),
	}
}

// ServeHTTP writes the summary as JSON.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpmw.WriteJSON(w, http.StatusOK, c.Summary(r.Context()))
}

func (c *Checker) checkBackend(ctx context.Context) Status {
	if c.backendURL == "" {
		return Status{OK: false, Message: "Not configured"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.backendURL+"/health", nil)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Status{OK: false, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	var h httpmw.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil || h.Status != "OK" {
		return Status{OK: false, Message: "Unexpected health response"}
	}
	return Status{OK: true, Message: h.Message}
}

func (c *Checker) checkPinger(ctx context.Context, p Pinger, okMsg string) Status {
	if p == nil {
		return Status{OK: false, Message: "Not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: okMsg}
}

func (c *Checker) checkArchive(ctx context.Context) Status {
	st := c.checkPinger(ctx, c.archive, "Reachable")
	if st.OK && c.archiveKind != "" {
		st.Message = fmt.Sprintf("%s (%s)", st.Message, c.archiveKind)
	}
	return st
}

func (c *Checker) checkVision() Status {
	if c.visionCreds == "" {
		return Status{OK: true, Message: "Application default credentials"}
	}
	if _, err := os.Stat(c.visionCreds); err != nil {
		return Status{OK: false, Message: "Credentials file not found"}
	}
	return Status{OK: true, Message: "Credentials file present"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
