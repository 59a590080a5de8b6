//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=../mocks/mock_verifier.go -package=mocks
package auth

import (
	"chatchat/domain/chat"
	"chatchat/errors"
	"context"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// IVerifier turns an opaque credential into a verified identity.
type IVerifier interface {
	Verify(ctx context.Context, credential string) (chat.Identity, error)
}

type VerifierConfig struct {
	HMACSecret       string
	PublicKeyPEM     []byte
	PublicKeyPEMFile string
	Issuer           string
	Audience         string
}

// JWTVerifier checks tokens signed either with a shared HMAC secret or with an RSA key.
// Without any key configured it answers every call with ErrVerifierUnavailable.
type JWTVerifier struct {
	parser  *jwt.Parser
	hmacKey []byte
	rsaKey  *rsa.PublicKey
}

func NewJWTVerifier(cfg VerifierConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{}
	if cfg.HMACSecret != "" {
		v.hmacKey = []byte(cfg.HMACSecret)
	}

	pem := cfg.PublicKeyPEM
	if len(pem) == 0 && cfg.PublicKeyPEMFile != "" {
		content, err := os.ReadFile(cfg.PublicKeyPEMFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		pem = content
	}
	if len(pem) > 0 {
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		v.rsaKey = key
	}

	var methods []string
	if v.hmacKey != nil {
		methods = append(methods, jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg())
	}
	if v.rsaKey != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg())
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

func (v *JWTVerifier) Available() bool {
	return v.hmacKey != nil || v.rsaKey != nil
}

func (v *JWTVerifier) Verify(ctx context.Context, credential string) (chat.Identity, error) {
	if !v.Available() {
		return chat.Identity{}, errors.ErrVerifierUnavailable
	}
	if err := ctx.Err(); err != nil {
		return chat.Identity{}, err
	}
	if credential == "" {
		return chat.Identity{}, errors.ErrMissingCredential
	}

	claims := &CustomClaims{}
	token, err := v.parser.ParseWithClaims(credential, claims, v.key)
	if err != nil {
		return chat.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidCredential, err)
	}
	if !token.Valid {
		return chat.Identity{}, errors.ErrInvalidCredential
	}

	identity := claims.identity()
	if identity.UserID == "" {
		return chat.Identity{}, fmt.Errorf("%w: no subject", errors.ErrInvalidCredential)
	}
	return identity, nil
}

func (v *JWTVerifier) key(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.hmacKey != nil {
			return v.hmacKey, nil
		}
	case *jwt.SigningMethodRSA:
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
	}
	return nil, jwt.ErrTokenUnverifiable
}
