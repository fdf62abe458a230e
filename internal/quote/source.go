// Package quote defines the quote-source capability and the fan-out
// aggregator that collects estimates across every configured DEX backend.
package quote

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/types"
)

// Source is one DEX backend able to estimate a swap's output. GetQuote may
// suspend on network I/O; implementations classify and tag their own
// failures and retry only the transient kinds.
type Source interface {
	Name() string
	GetQuote(ctx context.Context, req types.QuoteRequest) (types.Quote, error)
}

// ValidateRequest performs the checks shared by every source: well-formed
// token addresses, positive decimals, chain ids matching the request, and
// a positive input amount. Failures are KindValidation, distinct from any
// backend error.
func ValidateRequest(source string, req types.QuoteRequest) error {
	for _, tok := range []types.Token{req.TokenIn, req.TokenOut} {
		if tok.Address == (common.Address{}) {
			return dexerr.Newf(source, dexerr.KindValidation, "token %s has empty address", tok.Symbol)
		}
		if tok.Decimals <= 0 {
			return dexerr.Newf(source, dexerr.KindValidation, "token %s has non-positive decimals %d", tok.Symbol, tok.Decimals)
		}
		if tok.ChainID != req.ChainID {
			return dexerr.Newf(source, dexerr.KindValidation,
				"token %s chain id %d does not match request chain id %d", tok.Symbol, tok.ChainID, req.ChainID)
		}
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return dexerr.Newf(source, dexerr.KindValidation, "amountIn must be > 0")
	}
	return nil
}
