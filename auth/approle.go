package auth

import (
	"context"
	"fmt"

	"github.com/awnumar/memguard"
)

// AppRole logs in with a role_id/secret_id pair. The secret_id is kept in
// an encrypted enclave and only decrypted for the duration of a login.
type AppRole struct {
	base
	roleID   string
	secretID *memguard.Enclave
}

// NewAppRole creates a backend for the approle mount (or WithMountPath).
// No network call is made until Authenticate.
func NewAppRole(roleID, secretID string, opts ...Option) (*AppRole, error) {
	if roleID == "" || secretID == "" {
		return nil, fmt.Errorf("approle: %w: role_id and secret_id are required", ErrMissingCredentials)
	}
	return &AppRole{
		base:     base{opts: buildOptions("approle", opts)},
		roleID:   roleID,
		secretID: memguard.NewEnclave([]byte(secretID)),
	}, nil
}

func (a *AppRole) Name() string { return "approle" }

// RoleID returns the configured role_id.
func (a *AppRole) RoleID() string { return a.roleID }

// Authenticate performs the AppRole login and replaces the credential.
func (a *AppRole) Authenticate(ctx context.Context, baseURL string) error {
	secret, err := a.secretID.Open()
	if err != nil {
		return fmt.Errorf("approle: opening secret_id: %w", err)
	}
	defer secret.Destroy()

	body := struct {
		RoleID   string `json:"role_id"`
		SecretID string `json:"secret_id"`
	}{a.roleID, secret.String()}
	return a.login(ctx, baseURL, body)
}

// Renew extends the current token through renew-self.
func (a *AppRole) Renew(ctx context.Context, baseURL string) error {
	return a.renewSelf(ctx, baseURL)
}
