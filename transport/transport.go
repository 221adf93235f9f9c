// Package transport holds the HTTP plumbing shared by the auth backends,
// the session client and the secret-engine collaborators: URL building,
// request construction, status mapping and auth-response decoding.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/vault/api"
)

const (
	HeaderToken   = "X-Vault-Token"
	HeaderRequest = "X-Vault-Request"
)

// maxErrorBody bounds how much of a failed response is read for messages.
const maxErrorBody = 64 << 10

// Endpoint resolves an API path such as "auth/approle/login" against base,
// producing base + "/v1/" + path. A query string after "?" in path is kept.
func Endpoint(base, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q needs a scheme and host", ErrParse, base)
	}
	p, rawQuery, _ := strings.Cut(strings.TrimPrefix(path, "/"), "?")
	out := u.JoinPath("v1", p)
	out.RawQuery = rawQuery
	out.Fragment = ""
	return out.String(), nil
}

// NewRequest builds a Vault API request. body, when non-nil, is encoded as
// JSON; a json.RawMessage is sent as is. token is attached when non-empty.
func NewRequest(ctx context.Context, method, base, path, token string, body any) (*http.Request, error) {
	endpoint, err := Endpoint(base, path)
	if err != nil {
		return nil, err
	}

	var rdr io.Reader
	if body != nil {
		var data []byte
		switch b := body.(type) {
		case json.RawMessage:
			data = b
		case []byte:
			data = b
		default:
			data, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	req.Header.Set(HeaderRequest, "true")
	if token != "" {
		req.Header.Set(HeaderToken, token)
	}
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Send performs req and checks the status. On success the caller owns the
// response body; on a status error the body has already been consumed.
func Send(client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL.Path, err)
	}
	if err := CheckStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CheckStatus returns nil for any 2xx answer. Otherwise it drains and closes
// the body and returns a *StatusError carrying Vault's error messages.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	serr := &StatusError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Errors []string `json:"errors"`
	}
	if json.Unmarshal(data, &body) == nil {
		serr.Errors = body.Errors
	}
	return serr
}

// DecodeSecret reads a standard Vault secret envelope and closes the body.
func DecodeSecret(resp *http.Response) (*api.Secret, error) {
	defer resp.Body.Close()
	secret, err := api.ParseSecret(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if secret == nil {
		return nil, fmt.Errorf("%w: empty body", ErrDecode)
	}
	return secret, nil
}

// DecodeAuth reads the auth block of a login or renew answer.
func DecodeAuth(resp *http.Response) (*api.SecretAuth, error) {
	secret, err := DecodeSecret(resp)
	if err != nil {
		return nil, err
	}
	if secret.Auth == nil {
		return nil, fmt.Errorf("%w: missing auth block", ErrDecode)
	}
	return secret.Auth, nil
}

// DecodeJSON decodes the response body into v and closes it.
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Discard drains and closes a response body so the connection can be reused.
func Discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
