// Package dispatch asks the build service to build a package at a commit.
//
// A request is sent once. Retrying, queueing or re-triggering is left to the
// operator: a push must never wait on, or fail because of, the build service.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/thiagokokada/pushhooks/internal/buildinfo"
)

// DefaultEndpoint is the single package builder's start_build API.
const DefaultEndpoint = "https://issues.bioconductor.org/start_build"

// Request is the JSON body of a build request.
type Request struct {
	Package  string `json:"pkgname"`
	CommitID string `json:"commit_id"`
}

// Error reports a build request that failed in transport or was answered
// with a non-2xx status.
type Error struct {
	Request    Request
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build request for %s@%s: %v", e.Request.Package, e.Request.CommitID, e.Err)
	}
	msg := fmt.Sprintf("build request for %s@%s: %d %s", e.Request.Package, e.Request.CommitID, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

type Dispatcher struct {
	endpoint string
	client   *http.Client
}

// New returns a Dispatcher posting to endpoint. A zero timeout means none.
func New(endpoint string, timeout time.Duration) *Dispatcher {
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout
	return &Dispatcher{endpoint: endpoint, client: client}
}

// Dispatch sends one build request for pkg at commitID.
func (d *Dispatcher) Dispatch(ctx context.Context, pkg, commitID string) error {
	req := Request{Package: pkg, CommitID: commitID}
	body, err := json.Marshal(req)
	if err != nil {
		return &Error{Request: req, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Request: req, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent())

	slog.Debug("dispatching build",
		slog.String("endpoint", d.endpoint),
		slog.String("package", pkg),
		slog.String("commit", commitID),
	)
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return &Error{Request: req, Err: err}
	}
	defer resp.Body.Close()
	// Read a bounded amount so the service's explanation can be shown to the
	// operator.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Request: req, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	slog.Info("build triggered",
		slog.String("package", pkg),
		slog.String("commit", commitID),
		slog.Int("status", resp.StatusCode),
	)
	return nil
}
