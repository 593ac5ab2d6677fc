// =============================
// File: internal/dex/damm/accounts.go
// =============================
package damm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrInvalidDiscriminator возвращается, если данные не относятся к ожидаемому типу аккаунта.
	ErrInvalidDiscriminator = errors.New("invalid account discriminator")

	// ErrDataTooShort возвращается, если данных меньше, чем требует раскладка аккаунта.
	ErrDataTooShort = errors.New("account data too short")
)

// ParsePool парсит бинарные данные аккаунта пула.
func ParsePool(data []byte) (*Pool, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], PoolDiscriminator) {
		return nil, fmt.Errorf("pool: %w", ErrInvalidDiscriminator)
	}
	if len(data) < PoolMinSize {
		return nil, fmt.Errorf("pool: %w: got %d, want %d", ErrDataTooShort, len(data), PoolMinSize)
	}

	return &Pool{
		TokenAMint:   readPubkey(data, offsetTokenAMint),
		TokenBMint:   readPubkey(data, offsetTokenBMint),
		TokenAVault:  readPubkey(data, offsetTokenAVault),
		TokenBVault:  readPubkey(data, offsetTokenBVault),
		Liquidity:    readU128(data, offsetLiquidity),
		SqrtMinPrice: readU128(data, offsetSqrtMinPrice),
		SqrtMaxPrice: readU128(data, offsetSqrtMaxPrice),
		SqrtPrice:    readU128(data, offsetSqrtPrice),
		PoolStatus:   data[offsetPoolStatus],
	}, nil
}

// ParsePosition парсит бинарные данные аккаунта позиции.
func ParsePosition(data []byte) (*Position, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], PositionDiscriminator) {
		return nil, fmt.Errorf("position: %w", ErrInvalidDiscriminator)
	}
	if len(data) < PositionMinSize {
		return nil, fmt.Errorf("position: %w: got %d, want %d", ErrDataTooShort, len(data), PositionMinSize)
	}

	return &Position{
		Pool:                     readPubkey(data, offsetPosPool),
		NFTMint:                  readPubkey(data, offsetPosNFTMint),
		FeeAPending:              binary.LittleEndian.Uint64(data[offsetPosFeeAPending : offsetPosFeeAPending+8]),
		FeeBPending:              binary.LittleEndian.Uint64(data[offsetPosFeeBPending : offsetPosFeeBPending+8]),
		UnlockedLiquidity:        readU128(data, offsetPosUnlockedLiquidity),
		VestedLiquidity:          readU128(data, offsetPosVestedLiquidity),
		PermanentLockedLiquidity: readU128(data, offsetPosPermanentLocked),
	}, nil
}

// EncodePool собирает бинарное представление пула. Используется для фикстур и симуляций.
func EncodePool(p *Pool) []byte {
	data := make([]byte, PoolMinSize)
	copy(data, PoolDiscriminator)
	writePubkey(data, offsetTokenAMint, p.TokenAMint)
	writePubkey(data, offsetTokenBMint, p.TokenBMint)
	writePubkey(data, offsetTokenAVault, p.TokenAVault)
	writePubkey(data, offsetTokenBVault, p.TokenBVault)
	writeU128(data, offsetLiquidity, p.Liquidity)
	writeU128(data, offsetSqrtMinPrice, p.SqrtMinPrice)
	writeU128(data, offsetSqrtMaxPrice, p.SqrtMaxPrice)
	writeU128(data, offsetSqrtPrice, p.SqrtPrice)
	data[offsetPoolStatus] = p.PoolStatus
	return data
}

// EncodePosition собирает бинарное представление позиции.
func EncodePosition(p *Position) []byte {
	data := make([]byte, PositionMinSize)
	copy(data, PositionDiscriminator)
	writePubkey(data, offsetPosPool, p.Pool)
	writePubkey(data, offsetPosNFTMint, p.NFTMint)
	binary.LittleEndian.PutUint64(data[offsetPosFeeAPending:], p.FeeAPending)
	binary.LittleEndian.PutUint64(data[offsetPosFeeBPending:], p.FeeBPending)
	writeU128(data, offsetPosUnlockedLiquidity, p.UnlockedLiquidity)
	writeU128(data, offsetPosVestedLiquidity, p.VestedLiquidity)
	writeU128(data, offsetPosPermanentLocked, p.PermanentLockedLiquidity)
	return data
}

////////////////////////////////////////////////////////////////////////////////
// Чтение/запись примитивов
////////////////////////////////////////////////////////////////////////////////

func readPubkey(data []byte, offset int) solana.PublicKey {
	return solana.PublicKeyFromBytes(data[offset : offset+32])
}

func writePubkey(data []byte, offset int, key solana.PublicKey) {
	copy(data[offset:offset+32], key.Bytes())
}

// readU128 читает little-endian u128 в big.Int.
func readU128(data []byte, offset int) *big.Int {
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[15-i] = data[offset+i]
	}
	return new(big.Int).SetBytes(be)
}

// writeU128 пишет big.Int как little-endian u128; nil записывается как ноль.
func writeU128(data []byte, offset int, v *big.Int) {
	if v == nil {
		return
	}
	be := v.FillBytes(make([]byte, 16))
	for i := 0; i < 16; i++ {
		data[offset+i] = be[15-i]
	}
}
