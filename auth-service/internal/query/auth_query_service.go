package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/account-registry/auth-service/internal/repository"
	"github.com/eaglebank/account-registry/shared/cqrs"
	"github.com/eaglebank/account-registry/shared/middleware"
	"github.com/eaglebank/account-registry/shared/utils"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidAddress     = errors.New("invalid address")
)

type NonceStore interface {
	Save(ctx context.Context, address, nonce string, ttl time.Duration) error
	Consume(ctx context.Context, address string) (string, error)
}

// Challenge is what a caller must sign to log in.
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthQueryService issues bearer tokens to callers who prove control of an
// account address. It never touches registry state.
type AuthQueryService struct {
	nonces   NonceStore
	nonceTTL time.Duration
	tokenTTL time.Duration
}

func NewAuthQueryService(nonces NonceStore, nonceTTL, tokenTTL time.Duration) *AuthQueryService {
	return &AuthQueryService{nonces: nonces, nonceTTL: nonceTTL, tokenTTL: tokenTTL}
}

func ChallengeMessage(address, nonce string) string {
	return fmt.Sprintf("Sign in to the account registry.\n\nAddress: %s\nNonce: %s", address, nonce)
}

func (s *AuthQueryService) Challenge(ctx context.Context, cmd cqrs.ChallengeCommand) (*Challenge, error) {
	address, err := utils.NormalizeAddress(cmd.Address)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	nonce := uuid.NewString()
	if err := s.nonces.Save(ctx, address, nonce, s.nonceTTL); err != nil {
		return nil, err
	}
	return &Challenge{
		Address:   address,
		Nonce:     nonce,
		Message:   ChallengeMessage(address, nonce),
		ExpiresAt: time.Now().UTC().Add(s.nonceTTL),
	}, nil
}

// Login verifies a personal_sign signature over the outstanding challenge.
// The nonce is consumed whether or not the signature checks out.
func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (string, error) {
	address, err := utils.ParseAddress(cmd.Address)
	if err != nil {
		return "", ErrInvalidAddress
	}
	nonce, err := s.nonces.Consume(ctx, address.Hex())
	if errors.Is(err, repository.ErrNonceNotFound) {
		log.WithField("address", address.Hex()).Debug("No outstanding challenge")
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to load challenge: %w", err)
	}
	sig, err := hexutil.Decode(cmd.Signature)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	signer, err := utils.RecoverSigner([]byte(ChallengeMessage(address.Hex(), nonce)), sig)
	if err != nil || signer != address {
		return "", ErrInvalidCredentials
	}
	return s.generateToken(address.Hex())
}

func (s *AuthQueryService) RefreshToken(_ context.Context, cmd cqrs.RefreshTokenCommand) (string, error) {
	claims, err := middleware.ParseToken(cmd.Token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return s.generateToken(claims.Address)
}

func (s *AuthQueryService) generateToken(address string) (string, error) {
	now := time.Now()
	claims := middleware.Claims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}
