package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jmcleod/vaultsession/internal/util"
)

// DefaultServiceAccountTokenPath is where Kubernetes projects the pod's
// service-account token.
const DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// LoadServiceAccountJWT reads a service-account token from path, or from
// DefaultServiceAccountTokenPath when path is empty.
func LoadServiceAccountJWT(path string) (string, error) {
	if path == "" {
		path = DefaultServiceAccountTokenPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading service account token: %w", err)
	}
	defer util.WipeBytes(data)
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("service account token %s: %w", path, ErrMissingCredentials)
	}
	return tok, nil
}

// Kubernetes logs in with a role name and a service-account JWT.
//
// Built with NewKubernetesFromFile, the JWT is re-read on every
// Authenticate so rotated projected tokens are picked up. Renewal goes
// through renew-self and never resubmits the JWT.
type Kubernetes struct {
	base
	role    string
	jwtPath string
	proof   *memguard.Enclave
}

// NewKubernetes creates a backend for a fixed identity proof.
func NewKubernetes(role, proof string, opts ...Option) (*Kubernetes, error) {
	if role == "" {
		return nil, fmt.Errorf("kubernetes: %w: role is required", ErrMissingCredentials)
	}
	k := &Kubernetes{base: base{opts: buildOptions("kubernetes", opts)}, role: role}
	if err := k.checkProof(proof); err != nil {
		return nil, err
	}
	k.proof = memguard.NewEnclave([]byte(proof))
	return k, nil
}

// NewKubernetesFromFile creates a backend that reads its proof from path
// (DefaultServiceAccountTokenPath when empty). The file is validated now.
func NewKubernetesFromFile(role, path string, opts ...Option) (*Kubernetes, error) {
	if role == "" {
		return nil, fmt.Errorf("kubernetes: %w: role is required", ErrMissingCredentials)
	}
	if path == "" {
		path = DefaultServiceAccountTokenPath
	}
	k := &Kubernetes{base: base{opts: buildOptions("kubernetes", opts)}, role: role, jwtPath: path}
	proof, err := LoadServiceAccountJWT(path)
	if err != nil {
		return nil, err
	}
	if err := k.checkProof(proof); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Kubernetes) Name() string { return "kubernetes" }

// Role returns the Vault role the backend logs in as.
func (k *Kubernetes) Role() string { return k.role }

// Authenticate performs the Kubernetes login and replaces the credential.
func (k *Kubernetes) Authenticate(ctx context.Context, baseURL string) error {
	proof, err := k.currentProof()
	if err != nil {
		return err
	}
	body := struct {
		Role string `json:"role"`
		JWT  string `json:"jwt"`
	}{k.role, proof}
	return k.login(ctx, baseURL, body)
}

// Renew extends the current token through renew-self.
func (k *Kubernetes) Renew(ctx context.Context, baseURL string) error {
	return k.renewSelf(ctx, baseURL)
}

func (k *Kubernetes) currentProof() (string, error) {
	if k.jwtPath != "" {
		proof, err := LoadServiceAccountJWT(k.jwtPath)
		if err != nil {
			return "", fmt.Errorf("kubernetes: %w", err)
		}
		if err := k.checkProof(proof); err != nil {
			return "", err
		}
		return proof, nil
	}

	buf, err := k.proof.Open()
	if err != nil {
		return "", fmt.Errorf("kubernetes: opening identity proof: %w", err)
	}
	defer buf.Destroy()
	proof := string(buf.Bytes())
	if err := k.checkProof(proof); err != nil {
		return "", err
	}
	return proof, nil
}

// checkProof rejects values that are not a JWT or whose exp has passed.
// The signature is Vault's to verify.
func (k *Kubernetes) checkProof(proof string) error {
	if proof == "" {
		return fmt.Errorf("kubernetes: %w: empty jwt", ErrInvalidIdentityProof)
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(proof, &claims); err != nil {
		return fmt.Errorf("kubernetes: %w: %v", ErrInvalidIdentityProof, err)
	}
	if claims.ExpiresAt != nil && !k.opts.clock.Now().Before(claims.ExpiresAt.Time) {
		return fmt.Errorf("kubernetes: %w: expired at %s", ErrInvalidIdentityProof, claims.ExpiresAt.Time)
	}
	return nil
}
