package query

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/eaglebank/account-registry/auth-service/internal/repository"
	"github.com/eaglebank/account-registry/shared/cqrs"
	"github.com/eaglebank/account-registry/shared/middleware"
	"github.com/eaglebank/account-registry/shared/utils"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryNonces struct {
	nonces map[string]string
}

func (m *memoryNonces) Save(_ context.Context, address, nonce string, _ time.Duration) error {
	m.nonces[address] = nonce
	return nil
}

func (m *memoryNonces) Consume(_ context.Context, address string) (string, error) {
	n, ok := m.nonces[address]
	if !ok {
		return "", repository.ErrNonceNotFound
	}
	delete(m.nonces, address)
	return n, nil
}

type brokenNonces struct{}

func (brokenNonces) Save(context.Context, string, string, time.Duration) error {
	return errors.New("redis down")
}

func (brokenNonces) Consume(context.Context, string) (string, error) {
	return "", errors.New("redis down")
}

func newService(t *testing.T) *AuthQueryService {
	t.Helper()
	middleware.MustInitJWTSecret("test-secret")
	return NewAuthQueryService(&memoryNonces{nonces: map[string]string{}}, time.Minute, time.Hour)
}

func newSigner(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func sign(t *testing.T, key *ecdsa.PrivateKey, msg string) string {
	t.Helper()
	sig, err := crypto.Sign(utils.TextHash([]byte(msg)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func TestChallengeLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	key, address := newSigner(t)

	ch, err := svc.Challenge(ctx, cqrs.ChallengeCommand{Address: address})
	require.NoError(t, err)
	assert.Equal(t, address, ch.Address)
	assert.Contains(t, ch.Message, ch.Nonce)

	token, err := svc.Login(ctx, cqrs.LoginCommand{Address: address, Signature: sign(t, key, ch.Message)})
	require.NoError(t, err)

	claims, err := middleware.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, address, claims.Address)
}

func TestLoginNonceIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	key, address := newSigner(t)

	ch, err := svc.Challenge(ctx, cqrs.ChallengeCommand{Address: address})
	require.NoError(t, err)
	sig := sign(t, key, ch.Message)

	_, err = svc.Login(ctx, cqrs.LoginCommand{Address: address, Signature: sig})
	require.NoError(t, err)
	_, err = svc.Login(ctx, cqrs.LoginCommand{Address: address, Signature: sig})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsOtherSigner(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, address := newSigner(t)
	impostor, _ := newSigner(t)

	ch, err := svc.Challenge(ctx, cqrs.ChallengeCommand{Address: address})
	require.NoError(t, err)

	_, err = svc.Login(ctx, cqrs.LoginCommand{Address: address, Signature: sign(t, impostor, ch.Message)})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithoutChallenge(t *testing.T) {
	svc := newService(t)
	key, address := newSigner(t)

	_, err := svc.Login(context.Background(), cqrs.LoginCommand{
		Address:   address,
		Signature: sign(t, key, ChallengeMessage(address, "guessed")),
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginMalformedInput(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, address := newSigner(t)

	_, err := svc.Login(ctx, cqrs.LoginCommand{Address: "bob", Signature: "0x00"})
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = svc.Challenge(ctx, cqrs.ChallengeCommand{Address: address})
	require.NoError(t, err)
	_, err = svc.Login(ctx, cqrs.LoginCommand{Address: address, Signature: "not-hex"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, address := newSigner(t)

	token, err := svc.generateToken(address)
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, cqrs.RefreshTokenCommand{Token: token})
	require.NoError(t, err)
	claims, err := middleware.ParseToken(refreshed)
	require.NoError(t, err)
	assert.Equal(t, address, claims.Address)

	_, err = svc.RefreshToken(ctx, cqrs.RefreshTokenCommand{Token: "garbage"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginNonceStoreFailureIsNotACredentialError(t *testing.T) {
	middleware.MustInitJWTSecret("test-secret")
	svc := NewAuthQueryService(brokenNonces{}, time.Minute, time.Hour)
	key, address := newSigner(t)

	_, err := svc.Login(context.Background(), cqrs.LoginCommand{
		Address:   address,
		Signature: sign(t, key, ChallengeMessage(address, "n")),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Challenge(context.Background(), cqrs.ChallengeCommand{Address: address})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidAddress)
}
