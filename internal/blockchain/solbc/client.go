// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Client – тонкий адаптер для чтения состояния Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	url    string
	logger *zap.Logger
}

// Определение ошибок
var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		url:    rpcURL,
		logger: logger.Named("solbc-client"),
	}
}

// URL возвращает адрес RPC-узла клиента.
func (c *Client) URL() string {
	return c.url
}

// GetHealth возвращает статус узла ("ok" для здорового узла).
func (c *Client) GetHealth(ctx context.Context) (string, error) {
	status, err := c.rpc.GetHealth(ctx)
	if err != nil {
		c.logger.Debug("GetHealth error", zap.String("url", c.url), zap.Error(err))
		return "", err
	}
	return status, nil
}

// GetAccountInfo получает информацию об аккаунте. Отсутствующий аккаунт возвращает ErrAccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}
	return result, nil
}

// GetAccountDataInto получает данные аккаунта и декодирует их в указанную структуру.
func (c *Client) GetAccountDataInto(ctx context.Context, pubkey solana.PublicKey, dst interface{}) error {
	err := c.rpc.GetAccountDataInto(ctx, pubkey, dst)
	if err != nil {
		c.logger.Debug("GetAccountDataInto error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// GetSignaturesForAddress получает страницу подписей для адреса, от новых к старым.
// Пустая подпись before означает первую страницу.
func (c *Client) GetSignaturesForAddress(
	ctx context.Context,
	address solana.PublicKey,
	before solana.Signature,
	limit int,
) ([]*rpc.TransactionSignature, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentFinalized,
	}
	if !before.IsZero() {
		opts.Before = before
	}

	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, address, opts)
	if err != nil {
		c.logger.Debug("GetSignaturesForAddress error",
			zap.String("address", address.String()),
			zap.Error(err))
		return nil, err
	}
	return sigs, nil
}

// GetTransaction получает транзакцию вместе с метаданными (балансы токенов до/после).
func (c *Client) GetTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	tx, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		c.logger.Debug("GetTransaction error",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return nil, err
	}
	return tx, nil
}
