// Package client talks to the relay on behalf of a user and keeps the
// per-user credits and theme locally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
)

// APIError is a non-2xx reply from the relay.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("relay returned %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

// Result holds one conversion. Exactly one of Text, JSON or Workbook is
// set, depending on Kind.
type Result struct {
	Kind     contract.Kind
	Text     string
	JSON     json.RawMessage
	Workbook []byte
}

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		timeout: opts.Timeout,
		http:    hc,
	}
}

// Convert uploads data to the relay and returns the decoded result.
func (c *Client) Convert(ctx context.Context, kind contract.Kind, filename string, data []byte) (Result, error) {
	if _, err := contract.ParseKind(kind.String()); err != nil {
		return Result{}, err
	}
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	fw, err := mw.CreateFormFile(contract.FieldFile, filename)
	if err != nil {
		return Result{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return Result{}, err
	}
	if err := mw.WriteField(contract.FieldKind, kind.String()); err != nil {
		return Result{}, err
	}
	if err := mw.Close(); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/convert", &b)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post convert: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, apiError(resp.StatusCode, body)
	}

	res := Result{Kind: kind}
	switch kind {
	case contract.KindText:
		var tr struct {
			Result string `json:"result"`
		}
		if err := json.Unmarshal(body, &tr); err != nil {
			return Result{}, fmt.Errorf("decode text result: %w", err)
		}
		res.Text = tr.Result
	case contract.KindExcel:
		res.Workbook = body
	default:
		if !json.Valid(body) {
			return Result{}, fmt.Errorf("relay returned invalid JSON for %s", kind)
		}
		res.JSON = json.RawMessage(body)
	}
	return res, nil
}

func apiError(status int, body []byte) *APIError {
	var eb contract.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return &APIError{Status: status, Message: eb.Error, Details: eb.Details}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}
