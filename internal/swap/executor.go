// Package swap defines the swap-executor capability shared by every DEX
// backend, plus the on-chain plumbing (approvals, EIP-1559 sends, receipt
// waits) the concrete executors have in common.
package swap

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/gabesan21/trading-web3/internal/types"
)

// Executor performs one confirmed trade on a specific backend. Execute
// never lets an error escape: every failure mode lands in the SwapResult
// so the engine's control flow is uniform across backends.
type Executor interface {
	Name() string
	ApproveToken(ctx context.Context, token types.Token, amount *big.Int, signer types.Signer) error
	EstimateGas(ctx context.Context, req types.SwapRequest) uint64
	Execute(ctx context.Context, req types.SwapRequest) types.SwapResult
}

// Backend is the slice of ethclient the on-chain executors depend on.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Fail builds the uniform failure result.
func Fail(source string, err error) types.SwapResult {
	return types.SwapResult{Success: false, Err: err, Source: source}
}
