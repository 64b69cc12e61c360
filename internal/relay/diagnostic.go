package relay

import (
	"net/http"
	"time"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/httpmw"
)

// Diagnostic reports non-secret configuration. Values that are unset are
// shown as "not set".
type Diagnostic struct {
	BackendURL  string
	Environment string
	ProjectID   string
	AuthMode    string
}

type diagnosticBody struct {
	Message     string            `json:"message"`
	Environment map[string]string `json:"environment"`
	Timestamp   string            `json:"timestamp"`
	Status      string            `json:"status"`
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

func (d Diagnostic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, diagnosticBody{
		Message: "Relay diagnostic",
		Environment: map[string]string{
			"BACKEND_URL":         orNotSet(d.BackendURL),
			"APP_ENV":             orNotSet(d.Environment),
			"FIREBASE_PROJECT_ID": orNotSet(d.ProjectID),
			"AUTH_MODE":           orNotSet(d.AuthMode),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Status:    "OK",
	})
}
