package pricing

import (
	"fmt"
	"math/big"
)

// Mode selects the payment asset a purchase settles in.
type Mode string

const (
	// ModeNative settles in the chain's native coin, converted from USD at
	// the configured fixed rate.
	ModeNative Mode = "native"
	// ModeToken settles in the payment token, one token unit per bond.
	ModeToken Mode = "token"
)

// Quote is the priced form of a bond purchase. Amount is the exact integer
// the transaction carries, in the asset's smallest unit. Display strings
// are derived from it, never the other way around.
type Quote struct {
	BondCount    uint64
	Mode         Mode
	TotalCostUSD uint64
	Amount       *big.Int
}

// Calculator converts bond counts to settlement amounts. All arithmetic is
// integer arithmetic at full precision; floats never touch the tx path.
type Calculator struct {
	bondPriceUSD  uint64
	ethPriceUSD   uint64
	tokenDecimals uint8
}

// NewCalculator builds a calculator from the configured economics.
func NewCalculator(bondPriceUSD, ethPriceUSD uint64, tokenDecimals uint8) *Calculator {
	return &Calculator{
		bondPriceUSD:  bondPriceUSD,
		ethPriceUSD:   ethPriceUSD,
		tokenDecimals: tokenDecimals,
	}
}

// Quote prices bondCount bonds in the given mode.
func (c *Calculator) Quote(bondCount uint64, mode Mode) (*Quote, error) {
	if bondCount < 1 {
		return nil, fmt.Errorf("bond count must be at least 1, got %d", bondCount)
	}

	q := &Quote{
		BondCount:    bondCount,
		Mode:         mode,
		TotalCostUSD: bondCount * c.bondPriceUSD,
	}

	switch mode {
	case ModeNative:
		// wei = count * priceUSD * 10^18 / ethPriceUSD
		wei := new(big.Int).SetUint64(q.TotalCostUSD)
		wei.Mul(wei, weiPerEth())
		wei.Div(wei, new(big.Int).SetUint64(c.ethPriceUSD))
		q.Amount = wei
	case ModeToken:
		// One token per bond at the token's declared precision.
		amount := new(big.Int).SetUint64(bondCount)
		amount.Mul(amount, pow10(c.tokenDecimals))
		q.Amount = amount
	default:
		return nil, fmt.Errorf("unknown payment mode %q", mode)
	}
	return q, nil
}

// BondsForAmount inverts Quote, recovering the bond count from a settlement
// amount. Exact for any amount Quote can produce.
func (c *Calculator) BondsForAmount(amount *big.Int, mode Mode) (uint64, error) {
	switch mode {
	case ModeNative:
		usd := new(big.Int).Mul(amount, new(big.Int).SetUint64(c.ethPriceUSD))
		usd.Div(usd, weiPerEth())
		return usd.Div(usd, new(big.Int).SetUint64(c.bondPriceUSD)).Uint64(), nil
	case ModeToken:
		return new(big.Int).Div(amount, pow10(c.tokenDecimals)).Uint64(), nil
	default:
		return 0, fmt.Errorf("unknown payment mode %q", mode)
	}
}

// DisplayUSD renders the quote's USD figure for UI use only.
func (q *Quote) DisplayUSD() string {
	return fmt.Sprintf("$%d.00", q.TotalCostUSD)
}

// DisplayNative renders the native-coin figure for UI use only. The result
// must never be parsed back into a transaction amount.
func (q *Quote) DisplayNative() string {
	whole := new(big.Int)
	frac := new(big.Int)
	whole.DivMod(q.Amount, weiPerEth(), frac)
	return fmt.Sprintf("%s.%018s ETH", whole.String(), frac.String())
}

func weiPerEth() *big.Int {
	return pow10(18)
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
