package auth

import "errors"

var (
	ErrMissingCredentials   = errors.New("missing login credentials")
	ErrInvalidIdentityProof = errors.New("invalid identity proof")
	ErrInvalidTTL           = errors.New("token validity must be positive")
)
