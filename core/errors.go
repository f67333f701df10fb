package core

import "errors"

// Input validation errors. Always a client error, never retried.
var (
	ErrInvalidKeyEncoding = errors.New("invalid digital id encoding")
	ErrInvalidKeyLength   = errors.New("invalid public key length")
	ErrInvalidKeyPoint    = errors.New("public key is not a valid curve point")
	ErrMalformedPublicKey = errors.New("malformed public key")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrMalformedChallenge = errors.New("malformed challenge")
)

// Authentication failures. Surfaced to callers only as "unauthorized".
var (
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeConsumed = errors.New("challenge already consumed")
	ErrChallengeExpired  = errors.New("challenge has expired")
	ErrSignatureInvalid  = errors.New("invalid signature")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenRevoked      = errors.New("token has been revoked")
	ErrUserNotFound      = errors.New("token subject no longer resolves")
	ErrMalformedToken    = errors.New("malformed token")
)

// ErrAlreadyExists is returned when a digital id is registered twice.
var ErrAlreadyExists = errors.New("identity already exists")

// ErrorKind classifies errors for callers that need to decide how to surface them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInputValidation
	KindAuthentication
	KindStateConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindInputValidation:
		return "input_validation"
	case KindAuthentication:
		return "authentication"
	case KindStateConflict:
		return "state_conflict"
	default:
		return "internal"
	}
}

var inputErrors = []error{
	ErrInvalidKeyEncoding,
	ErrInvalidKeyLength,
	ErrInvalidKeyPoint,
	ErrMalformedPublicKey,
	ErrMalformedSignature,
	ErrMalformedChallenge,
}

var authErrors = []error{
	ErrIdentityNotFound,
	ErrChallengeNotFound,
	ErrChallengeConsumed,
	ErrChallengeExpired,
	ErrSignatureInvalid,
	ErrTokenExpired,
	ErrTokenRevoked,
	ErrUserNotFound,
	ErrMalformedToken,
}

// KindOf reports the taxonomy class of err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	if errors.Is(err, ErrAlreadyExists) {
		return KindStateConflict
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return KindAuthentication
		}
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return KindInputValidation
		}
	}
	return KindInternal
}
