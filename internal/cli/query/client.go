// Package query implements the HTTP client side of the query surface:
// reading the session discovery file to locate a running samply server,
// issuing a GET against one of its token-prefixed query endpoints, and
// printing the data payload of the JSON envelope it returns.
package query

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mbbill/samply-for-ai/internal/config"
	"github.com/mbbill/samply-for-ai/internal/session"
	"github.com/mbbill/samply-for-ai/pkg/version"
)

// envelope mirrors internal/httpapi's response shape.
type envelope struct {
	Success bool            `json:"success"`
	Query   string          `json:"query,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// serverURL resolves the running server's base URL from the session
// discovery file, failing with a clear message when no server is running.
func serverURL() (string, error) {
	loader := config.NewLoader()
	path := loader.SessionPath()
	if !session.Exists(path) {
		return "", fmt.Errorf("no running samply server found; run 'samply serve <profile>' first")
	}
	sess, err := session.Load(path)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if !sess.IsAlive() {
		return "", fmt.Errorf("session file refers to pid %d, which is no longer running", sess.PID)
	}
	return sess.ServerURL, nil
}

// runQuery GETs path (relative to the server's token prefix) with the given
// query parameters, and returns the decoded envelope's Data payload.
func runQuery(path string, params url.Values) (json.RawMessage, error) {
	base, err := serverURL()
	if err != nil {
		return nil, err
	}

	u := base + path
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	req, err := http.NewRequest(http.MethodGet, u, nil) //nolint:noctx // CLI tool, no caller-supplied context.
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", u, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("query failed: %s", env.Error)
	}
	return env.Data, nil
}

func printJSON(data json.RawMessage) error {
	var pretty interface{}
	if err := json.Unmarshal(data, &pretty); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
