package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Token is an immutable stablecoin description loaded from static config.
// Identity is (Address, ChainID).
type Token struct {
	Address  common.Address
	Decimals int
	Symbol   string
	ChainID  int64
}

// QuoteRequest asks a quote source how much TokenOut a given amount of
// TokenIn would yield. AmountIn is denominated in TokenIn's smallest unit.
type QuoteRequest struct {
	TokenIn  Token
	TokenOut Token
	AmountIn *big.Int
	ChainID  int64
}

// Quote is a non-binding estimate from a single source. AmountOut is in
// TokenOut's smallest unit.
type Quote struct {
	Source      string
	AmountOut   *big.Int
	GasEstimate uint64
	FeeAmount   *big.Int
	Route       string
	CreatedAt   time.Time
}

// Opportunity is a quote that cleared the configured profit threshold.
// It lives only for the remainder of the run that produced it.
type Opportunity struct {
	Provider    string
	TokenIn     Token
	TokenOut    Token
	AmountIn    *big.Int
	ExpectedOut *big.Int
	ProfitBps   int64
	Quote       Quote
	GasEstimate uint64
}

// Signer is the signing credential supplied by the caller. It signs both
// transactions and EIP-712 digests; the core never constructs one itself.
type Signer interface {
	Address() common.Address
	SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
	SignTypedHash(domainSeparator, structHash []byte) ([]byte, error)
}

// SwapRequest is the confirmed trade handed to an executor. MinAmountOut is
// already slippage-adjusted and Deadline is an absolute unix timestamp.
type SwapRequest struct {
	TokenIn      Token
	TokenOut     Token
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Deadline     int64
	Signer       Signer
	ChainID      int64
	// Route carries backend-specific routing detail from the winning
	// quote, e.g. the fee tier for a Uniswap V3 pool.
	Route string
}

// SwapResult is the terminal outcome of one execution attempt. Executors
// never let an error escape past their boundary; failures land here.
type SwapResult struct {
	Success   bool
	TxID      string
	AmountOut *big.Int
	GasUsed   uint64
	Err       error
	Source    string
}

// ArbitrageResult is the single value an engine run produces.
type ArbitrageResult struct {
	Attempted   bool
	Success     bool
	Opportunity *Opportunity
	TxID        string
	Reason      string
}
