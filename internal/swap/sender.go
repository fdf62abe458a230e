package swap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/types"
)

const receiptPollInterval = 500 * time.Millisecond

// Sender signs and submits EIP-1559 transactions and waits for receipts.
type Sender struct {
	ec      Backend
	chainID *big.Int
	log     *zap.Logger
}

func NewSender(ec Backend, chainID int64, log *zap.Logger) *Sender {
	return &Sender{ec: ec, chainID: big.NewInt(chainID), log: log}
}

// SendAndWait submits calldata to a contract and blocks until the receipt
// is available or ctx expires. Fee fields follow the 2*baseFee+tip rule so
// the transaction survives moderate base-fee growth.
func (s *Sender) SendAndWait(ctx context.Context, signer types.Signer, to common.Address, data []byte, gasLimit uint64, value *big.Int) (*ethtypes.Receipt, error) {
	nonce, err := s.ec.PendingNonceAt(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasTipCap, err := s.ec.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip cap: %w", err)
	}
	header, err := s.ec.HeaderByNumber(ctx, nil)
	if err != nil || header.BaseFee == nil {
		return nil, fmt.Errorf("get header/base fee: %w", err)
	}
	gasFeeCap := new(big.Int).Add(
		new(big.Int).Mul(header.BaseFee, big.NewInt(2)),
		gasTipCap,
	)

	if value == nil {
		value = big.NewInt(0)
	}
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := signer.SignTx(tx, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := s.ec.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	hash := signed.Hash()
	s.log.Info("transaction submitted", zap.String("tx", hash.Hex()))
	return s.waitReceipt(ctx, hash)
}

func (s *Sender) waitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	tick := time.NewTicker(receiptPollInterval)
	defer tick.Stop()
	for {
		rcpt, err := s.ec.TransactionReceipt(ctx, hash)
		if err == nil {
			return rcpt, nil
		}
		if err != ethereum.NotFound {
			return nil, fmt.Errorf("get receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait receipt %s: %w", hash.Hex(), ctx.Err())
		case <-tick.C:
		}
	}
}
