package swap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/types"
)

const erc20ApproveABI = `[
  {"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const approveGasLimit = 80_000

// Approver implements the idempotent allowance protocol: read the current
// allowance first and only submit an approval transaction when it falls
// short, waiting for its receipt before returning.
type Approver struct {
	ec     Backend
	sender *Sender
	eabi   abi.ABI
	log    *zap.Logger
}

func NewApprover(ec Backend, sender *Sender, log *zap.Logger) (*Approver, error) {
	eabi, err := abi.JSON(strings.NewReader(erc20ApproveABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &Approver{ec: ec, sender: sender, eabi: eabi, log: log}, nil
}

// EnsureAllowance is a no-op when spender's allowance already covers
// amount; safe to call before every execution.
func (a *Approver) EnsureAllowance(ctx context.Context, token types.Token, spender common.Address, amount *big.Int, signer types.Signer) error {
	current, err := a.allowance(ctx, token.Address, signer.Address(), spender)
	if err != nil {
		return fmt.Errorf("read allowance %s: %w", token.Symbol, err)
	}
	if current.Cmp(amount) >= 0 {
		a.log.Debug("allowance sufficient, skipping approval",
			zap.String("token", token.Symbol), zap.String("spender", spender.Hex()))
		return nil
	}

	input, err := a.eabi.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}
	rcpt, err := a.sender.SendAndWait(ctx, signer, token.Address, input, approveGasLimit, nil)
	if err != nil {
		return fmt.Errorf("approve %s for %s: %w", token.Symbol, spender.Hex(), err)
	}
	if rcpt.Status != 1 {
		return fmt.Errorf("approve %s reverted in tx %s", token.Symbol, rcpt.TxHash.Hex())
	}
	a.log.Info("approval confirmed",
		zap.String("token", token.Symbol),
		zap.String("spender", spender.Hex()),
		zap.String("tx", rcpt.TxHash.Hex()),
	)
	return nil
}

func (a *Approver) allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	input, err := a.eabi.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}
	res, err := a.ec.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	outs, err := a.eabi.Methods["allowance"].Outputs.Unpack(res)
	if err != nil || len(outs) == 0 {
		if err == nil {
			err = fmt.Errorf("empty allowance output")
		}
		return nil, fmt.Errorf("decode allowance: %w", err)
	}
	amt, ok := outs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", outs[0])
	}
	return amt, nil
}
