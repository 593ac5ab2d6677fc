// =============================
// File: internal/dex/damm/quote.go
// =============================
package damm

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrInvalidPrice возвращается, если у пула нулевая текущая или верхняя sqrt-цена.
var ErrInvalidPrice = errors.New("pool sqrt price is zero")

// WithdrawQuote вычисляет количество токенов A и B, которое вернёт вывод ликвидности
// liquidity при текущей цене пула. Это детерминированная котировка по кривой, а не сделка.
//
// Формулы концентрированной ликвидности (sqrt-цены в формате Q64.64, ликвидность — Q64):
// - amountA = L * (sqrtMax - sqrtP) / (sqrtP * sqrtMax)
// - amountB = L * (sqrtP - sqrtMin) >> 128
//
// Оба значения округляются вниз, как при реальном выводе.
func WithdrawQuote(pool *Pool, liquidity *big.Int) (amountA, amountB *big.Int, err error) {
	amountA, amountB = new(big.Int), new(big.Int)
	if liquidity == nil || liquidity.Sign() == 0 {
		return amountA, amountB, nil
	}
	if pool.SqrtPrice == nil || pool.SqrtPrice.Sign() == 0 ||
		pool.SqrtMaxPrice == nil || pool.SqrtMaxPrice.Sign() == 0 {
		return nil, nil, ErrInvalidPrice
	}

	sqrtP := pool.SqrtPrice
	sqrtMin := pool.SqrtMinPrice
	if sqrtMin == nil {
		sqrtMin = new(big.Int)
	}

	// Токен A: только если цена ниже верхней границы
	if sqrtP.Cmp(pool.SqrtMaxPrice) < 0 {
		num := new(big.Int).Sub(pool.SqrtMaxPrice, sqrtP)
		num.Mul(num, liquidity)
		den := new(big.Int).Mul(sqrtP, pool.SqrtMaxPrice)
		amountA.Quo(num, den)
	}

	// Токен B: только если цена выше нижней границы
	if sqrtP.Cmp(sqrtMin) > 0 {
		prod := new(big.Int).Sub(sqrtP, sqrtMin)
		prod.Mul(prod, liquidity)
		amountB.Rsh(prod, 128)
	}

	return amountA, amountB, nil
}

// ToUIAmount переводит сырое количество в единицы токена с учётом decimals.
func ToUIAmount(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).InexactFloat64()
}

// ToUIAmountU64 — то же для u64-полей (комиссии позиции).
func ToUIAmountU64(raw uint64, decimals uint8) float64 {
	return ToUIAmount(new(big.Int).SetUint64(raw), decimals)
}
