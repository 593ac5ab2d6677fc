// =============================
// File: internal/dex/damm/types.go
// =============================
package damm

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// ProgramID — адрес программы Meteora DAMM v2 (cp-amm).
var ProgramID = solana.MustPublicKeyFromBase58("cpamdpZCGKUy5JxQXB4dcpGPiikHawvSWAd6mEn1sGG")

// Дискриминаторы аккаунтов (первые 8 байт sha256("account:<Name>")).
var (
	// PoolDiscriminator is the discriminator for Pool accounts
	PoolDiscriminator = []byte{241, 154, 109, 4, 17, 177, 109, 188}

	// PositionDiscriminator is the discriminator for Position accounts
	PositionDiscriminator = []byte{170, 188, 143, 228, 122, 64, 247, 208}
)

// Смещения полей в аккаунте Pool. Структура pool_fees занимает 160 байт сразу
// после дискриминатора, за ней идут mint'ы, vault'ы и состояние кривой.
const (
	poolFeesSize = 160

	offsetTokenAMint    = 8 + poolFeesSize
	offsetTokenBMint    = offsetTokenAMint + 32
	offsetTokenAVault   = offsetTokenBMint + 32
	offsetTokenBVault   = offsetTokenAVault + 32
	offsetWhitelisted   = offsetTokenBVault + 32
	offsetPartner       = offsetWhitelisted + 32
	offsetLiquidity     = offsetPartner + 32
	offsetProtocolAFee  = offsetLiquidity + 16 + 16 // liquidity + padding u128
	offsetSqrtMinPrice  = offsetProtocolAFee + 8*4  // protocol a/b + partner a/b fees
	offsetSqrtMaxPrice  = offsetSqrtMinPrice + 16
	offsetSqrtPrice     = offsetSqrtMaxPrice + 16
	offsetActivationPt  = offsetSqrtPrice + 16
	offsetActivationTyp = offsetActivationPt + 8
	offsetPoolStatus    = offsetActivationTyp + 1

	// PoolMinSize — минимальная длина данных, покрывающая все читаемые поля.
	PoolMinSize = offsetPoolStatus + 1
)

// Смещения полей в аккаунте Position.
const (
	offsetPosPool              = 8
	offsetPosNFTMint           = offsetPosPool + 32
	offsetPosFeeACheckpoint    = offsetPosNFTMint + 32
	offsetPosFeeBCheckpoint    = offsetPosFeeACheckpoint + 32
	offsetPosFeeAPending       = offsetPosFeeBCheckpoint + 32
	offsetPosFeeBPending       = offsetPosFeeAPending + 8
	offsetPosUnlockedLiquidity = offsetPosFeeBPending + 8
	offsetPosVestedLiquidity   = offsetPosUnlockedLiquidity + 16
	offsetPosPermanentLocked   = offsetPosVestedLiquidity + 16

	// PositionMinSize — минимальная длина данных позиции.
	PositionMinSize = offsetPosPermanentLocked + 16
)

// Pool представляет состояние пула DAMM v2, необходимое для оценки позиций.
type Pool struct {
	TokenAMint   solana.PublicKey // Mint токена A
	TokenBMint   solana.PublicKey // Mint токена B
	TokenAVault  solana.PublicKey // Vault токена A
	TokenBVault  solana.PublicKey // Vault токена B
	Liquidity    *big.Int         // Суммарная ликвидность пула (u128)
	SqrtMinPrice *big.Int         // Нижняя граница sqrt-цены (Q64.64)
	SqrtMaxPrice *big.Int         // Верхняя граница sqrt-цены (Q64.64)
	SqrtPrice    *big.Int         // Текущая sqrt-цена (Q64.64)
	PoolStatus   uint8            // 0 — активен
}

// Position представляет позицию ликвидности в пуле DAMM v2.
type Position struct {
	Pool                     solana.PublicKey // Пул, которому принадлежит позиция
	NFTMint                  solana.PublicKey // NFT, подтверждающий владение позицией
	FeeAPending              uint64           // Невостребованные комиссии токена A
	FeeBPending              uint64           // Невостребованные комиссии токена B
	UnlockedLiquidity        *big.Int         // Свободная ликвидность
	VestedLiquidity          *big.Int         // Ликвидность в вестинге
	PermanentLockedLiquidity *big.Int         // Навсегда заблокированная ликвидность
}

// TotalLiquidity возвращает ликвидность, которую можно вывести: unlocked + vested.
func (p *Position) TotalLiquidity() *big.Int {
	total := new(big.Int)
	if p.UnlockedLiquidity != nil {
		total.Add(total, p.UnlockedLiquidity)
	}
	if p.VestedLiquidity != nil {
		total.Add(total, p.VestedLiquidity)
	}
	return total
}

// IsEmpty сообщает, что у позиции нет ни ликвидности, ни накопленных комиссий.
func (p *Position) IsEmpty() bool {
	return p.TotalLiquidity().Sign() == 0 && p.FeeAPending == 0 && p.FeeBPending == 0
}
