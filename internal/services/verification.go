package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wallet/internal/models"
)

const (
	codeKeyPrefix    = "verification:code:"
	pendingKeyPrefix = "verification:pending:"
)

// TTLCache is the shared key-value store holding staged verification state.
// Entries expire server-side; GetDel must be atomic so a token can only be
// consumed once.
type TTLCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) (bool, error)
	GetDel(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string) error
}

type EmailSender interface {
	Send(subject, toAddress, toName, body string) error
}

// PendingTransaction is a staged, not-yet-committed transaction request
// keyed by an opaque token. It never reaches durable storage; losing it
// means the client restarts the transaction.
type PendingTransaction struct {
	Token    string        `json:"token"`
	UserID   string        `json:"user_id"`
	WalletID string        `json:"wallet_id"`
	Request  CreateRequest `json:"request"`
	StagedAt time.Time     `json:"staged_at"`
}

type storedCode struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// Escalator manages the stage/verify lifecycle of high-value transactions.
// The user-level code proves the user's identity and may cover several
// pending transactions; the per-transaction token proves this exact
// request and is single use.
type Escalator struct {
	cache      TTLCache
	email      EmailSender
	codeTTL    time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

func NewEscalator(cache TTLCache, email EmailSender, codeTTL, pendingTTL time.Duration) *Escalator {
	return &Escalator{
		cache:      cache,
		email:      email,
		codeTTL:    codeTTL,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

// Stage generates a fresh verification code for the user, delivers it by
// email, and caches the request under a new opaque token. Nothing is
// committed; the returned token goes back to the caller.
func (e *Escalator) Stage(ctx context.Context, req CreateRequest, user models.User) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	issued := e.now()
	if err := e.cache.Set(ctx, codeKeyPrefix+user.ID, storedCode{Code: code, IssuedAt: issued}, e.codeTTL); err != nil {
		return "", err
	}
	token := uuid.NewString()
	pending := PendingTransaction{
		Token:    token,
		UserID:   user.ID,
		WalletID: req.WalletID,
		Request:  req,
		StagedAt: issued,
	}
	if err := e.cache.Set(ctx, pendingKeyPrefix+token, pending, e.pendingTTL); err != nil {
		return "", err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(e.codeTTL.Minutes()))
	if err := e.email.Send("Confirm your transaction", user.Email, user.Username, body); err != nil {
		// Delivery is fire-and-forget; the staged state stays valid.
		logrus.WithError(err).WithField("user_id", user.ID).Warn("verification email delivery failed")
	}
	return token, nil
}

// VerifyCode checks a submitted code against the user's stored one and its
// validity window, clearing the stored code on success.
func (e *Escalator) VerifyCode(ctx context.Context, userID, code string) error {
	var stored storedCode
	found, err := e.cache.Get(ctx, codeKeyPrefix+userID, &stored)
	if err != nil {
		return err
	}
	if !found || stored.Code != code {
		return ErrVerificationFailed
	}
	if e.now().Sub(stored.IssuedAt) > e.codeTTL {
		return ErrVerificationFailed
	}
	return e.cache.Delete(ctx, codeKeyPrefix+userID)
}

// TakePending atomically fetches and removes the staged request for token.
// A missing entry means the token expired or was already consumed; the
// transaction must be restarted even if the code itself was correct.
func (e *Escalator) TakePending(ctx context.Context, token string) (PendingTransaction, error) {
	var pending PendingTransaction
	found, err := e.cache.GetDel(ctx, pendingKeyPrefix+token, &pending)
	if err != nil {
		return PendingTransaction{}, err
	}
	if !found {
		return PendingTransaction{}, ErrVerificationExpired
	}
	return pending, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
