package database

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/vaultsession/transport"
)

type stubRequester struct {
	method, path string
	status       int
	body         string
}

func (s *stubRequester) Request(_ context.Context, method, path string, _ any) (*http.Response, error) {
	s.method, s.path = method, path
	resp := &http.Response{StatusCode: s.status, Body: io.NopCloser(strings.NewReader(s.body))}
	if err := transport.CheckStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func TestGetCredentials(t *testing.T) {
	stub := &stubRequester{status: http.StatusOK, body: `{
		"lease_id": "database/creds/readonly/2f6a614c",
		"lease_duration": 3600,
		"renewable": true,
		"data": {"username": "v-root-readonly-x", "password": "A1a-xyz"}
	}`}

	creds, err := GetCredentials(t.Context(), stub, "readonly")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, stub.method)
	assert.Equal(t, "database/creds/readonly", stub.path)
	assert.Equal(t, &Credentials{
		Username:  "v-root-readonly-x",
		Password:  "A1a-xyz",
		LeaseID:   "database/creds/readonly/2f6a614c",
		Duration:  time.Hour,
		Renewable: true,
	}, creds)
}

func TestGetCredentialsAtCustomMount(t *testing.T) {
	stub := &stubRequester{status: http.StatusOK, body: `{"data":{"username":"u","password":"p"}}`}
	_, err := GetCredentialsAt(t.Context(), stub, "/postgres/", "app")
	require.NoError(t, err)
	assert.Equal(t, "postgres/creds/app", stub.path)
}

func TestGetCredentialsErrors(t *testing.T) {
	_, err := GetCredentials(t.Context(), &stubRequester{status: http.StatusNotFound, body: `{"errors":["unknown role"]}`}, "nope")
	assert.ErrorIs(t, err, transport.ErrNotFound)

	_, err = GetCredentials(t.Context(), &stubRequester{status: http.StatusOK, body: `{"data":{"username":"u"}}`}, "half")
	assert.ErrorIs(t, err, transport.ErrDecode)

	_, err = GetCredentials(t.Context(), &stubRequester{status: http.StatusOK, body: `<html>`}, "bad")
	assert.ErrorIs(t, err, transport.ErrDecode)
}
