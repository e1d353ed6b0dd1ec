package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"mybank/internal/domain"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Signer produces HMAC-SHA256 receipts for recorded transactions.
type Signer struct {
	secretKey []byte
	logger    *slog.Logger
}

func NewSigner(secretKey string, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(data []byte, signature string) error {
	expected := s.Sign(data)

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.logger.Warn("Signature verification failed")
		return ErrInvalidSignature
	}

	return nil
}

func (s *Signer) SignTransaction(tx *domain.Transaction) string {
	return s.Sign(transactionPayload(tx))
}

func (s *Signer) VerifyTransaction(tx *domain.Transaction, signature string) error {
	return s.Verify(transactionPayload(tx), signature)
}

func transactionPayload(tx *domain.Transaction) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s:%d",
		tx.ID, tx.Type, tx.Amount.String(), tx.Currency, tx.Timestamp.UnixNano()))
}
