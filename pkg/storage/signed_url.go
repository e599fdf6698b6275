package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadIssuer = "score-api/exports"

// DownloadTicket is what a download token grants: one rendered file of one
// export job.
type DownloadTicket struct {
	JobID     string
	Path      string
	Format    string
	ExpiresAt time.Time
}

type downloadClaims struct {
	Path   string `json:"path"`
	Format string `json:"fmt"`
	jwt.RegisteredClaims
}

// DownloadSigner issues and verifies HS256 download tokens.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadSigner constructs a signer. Tokens live for ttl, 24h when unset.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for ticket. ExpiresAt is ignored and recomputed from
// the signer's ttl.
func (s *DownloadSigner) Sign(ticket DownloadTicket) (string, time.Time, error) {
	if ticket.JobID == "" || ticket.Path == "" {
		return "", time.Time{}, fmt.Errorf("job id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl).Truncate(time.Second)
	claims := downloadClaims{
		Path:   ticket.Path,
		Format: ticket.Format,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ticket.JobID,
			Issuer:    downloadIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the signature and returns the ticket. Cleanup passes
// allowExpired to locate files behind tokens that no longer grant access.
func (s *DownloadSigner) Verify(token string, allowExpired bool) (*DownloadTicket, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(downloadIssuer),
		jwt.WithTimeFunc(s.now),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	var claims downloadClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("download token expired: %w", err)
		}
		return nil, fmt.Errorf("invalid download token: %w", err)
	}
	if claims.ID == "" || claims.Path == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("invalid download token: missing claims")
	}
	return &DownloadTicket{
		JobID:     claims.ID,
		Path:      claims.Path,
		Format:    claims.Format,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
