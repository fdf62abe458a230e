// Package balance reads on-chain ERC-20 balances and picks the best-funded
// stablecoin to trade out of.
package balance

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/multicall"
	"github.com/gabesan21/trading-web3/internal/types"
)

const erc20ABI = `[
  {"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// ChainReader is the narrow slice of ethclient the inspector depends on.
type ChainReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenBalance pairs a token with its raw smallest-unit balance.
type TokenBalance struct {
	Token   types.Token
	Balance *big.Int
}

type Inspector struct {
	ec   ChainReader
	mc   multicall.IClient // optional; batches GetBalances when set
	eabi abi.ABI
	log  *zap.Logger
}

func NewInspector(ec ChainReader, mc multicall.IClient, log *zap.Logger) (*Inspector, error) {
	eabi, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &Inspector{ec: ec, mc: mc, eabi: eabi, log: log}, nil
}

// GetBalance reads one token balance. Backend errors propagate verbatim;
// the caller decides what they mean.
func (in *Inspector) GetBalance(ctx context.Context, wallet common.Address, token types.Token) (*big.Int, error) {
	input, err := in.eabi.Pack("balanceOf", wallet)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	res, err := in.ec.CallContract(ctx, ethereum.CallMsg{To: &token.Address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf %s: %w", token.Symbol, err)
	}
	return in.decodeBalance(res)
}

// GetBalances reads every token's balance, via one multicall batch when a
// multicall client is configured, otherwise with concurrent single reads.
// A failed read logs a warning and yields zero for that token so one broken
// contract does not block discovery for the rest.
func (in *Inspector) GetBalances(ctx context.Context, wallet common.Address, tokens []types.Token) map[string]*big.Int {
	out := make(map[string]*big.Int, len(tokens))
	if len(tokens) == 0 {
		return out
	}

	if in.mc != nil {
		if batched, err := in.balancesViaMulticall(ctx, wallet, tokens); err == nil {
			return batched
		} else {
			in.log.Warn("multicall batch failed, falling back to single reads", zap.Error(err))
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, tok := range tokens {
		tok := tok
		wg.Add(1)
		go func() {
			defer wg.Done()
			bal, err := in.GetBalance(ctx, wallet, tok)
			if err != nil {
				in.log.Warn("balance read failed, assuming zero",
					zap.String("token", tok.Symbol), zap.Error(err))
				bal = big.NewInt(0)
			}
			mu.Lock()
			out[tok.Symbol] = bal
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (in *Inspector) balancesViaMulticall(ctx context.Context, wallet common.Address, tokens []types.Token) (map[string]*big.Int, error) {
	input, err := in.eabi.Pack("balanceOf", wallet)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	calls := make([]multicall.Call, len(tokens))
	for i, tok := range tokens {
		calls[i] = multicall.Call{Target: tok.Address, CallData: input}
	}

	results, err := in.mc.TryAggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*big.Int, len(tokens))
	for i, res := range results {
		if !res.Success {
			in.log.Warn("balance read reverted, assuming zero", zap.String("token", tokens[i].Symbol))
			out[tokens[i].Symbol] = big.NewInt(0)
			continue
		}
		bal, err := in.decodeBalance(res.Data)
		if err != nil {
			in.log.Warn("balance decode failed, assuming zero",
				zap.String("token", tokens[i].Symbol), zap.Error(err))
			bal = big.NewInt(0)
		}
		out[tokens[i].Symbol] = bal
	}
	return out, nil
}

// HighestStablecoinBalance returns the best-funded token with balance at or
// above minThreshold (nil threshold means no floor), or nil when nothing
// qualifies. An empty wallet is a normal outcome, not an error.
//
// Balances are compared as raw smallest-unit integers without decimal
// normalization. With ~$1 stablecoins of mixed decimals this silently
// favors higher-decimal tokens; kept as-is, a known limitation.
func (in *Inspector) HighestStablecoinBalance(ctx context.Context, wallet common.Address, tokens []types.Token, minThreshold *big.Int) (*TokenBalance, error) {
	balances := in.GetBalances(ctx, wallet, tokens)

	var best *TokenBalance
	for _, tok := range tokens {
		bal, ok := balances[tok.Symbol]
		if !ok || bal.Sign() == 0 {
			continue
		}
		if minThreshold != nil && bal.Cmp(minThreshold) < 0 {
			continue
		}
		if best == nil || bal.Cmp(best.Balance) > 0 {
			best = &TokenBalance{Token: tok, Balance: bal}
		}
	}
	return best, nil
}

func (in *Inspector) decodeBalance(data []byte) (*big.Int, error) {
	outs, err := in.eabi.Methods["balanceOf"].Outputs.Unpack(data)
	if err != nil || len(outs) == 0 {
		if err == nil {
			err = fmt.Errorf("empty balanceOf output")
		}
		return nil, fmt.Errorf("decode balanceOf: %w", err)
	}
	bal, ok := outs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf type %T", outs[0])
	}
	return bal, nil
}
