package swap

import (
	"context"
	"math/big"
	"strings"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/types"
	"github.com/gabesan21/trading-web3/internal/wallet"
)

const testPK = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	spender = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	usdt    = types.Token{Address: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"), Decimals: 6, Symbol: "USDT", ChainID: 42161}
)

// chainStub answers the minimal RPC surface of one approval round trip.
type chainStub struct {
	allowance *big.Int
	sent      []*ethtypes.Transaction
	status    uint64
}

func (s *chainStub) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	eabi, err := abi.JSON(strings.NewReader(erc20ApproveABI))
	if err != nil {
		return nil, err
	}
	return eabi.Methods["allowance"].Outputs.Pack(s.allowance)
}
func (s *chainStub) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }
func (s *chainStub) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(100), nil
}
func (s *chainStub) HeaderByNumber(context.Context, *big.Int) (*ethtypes.Header, error) {
	return &ethtypes.Header{BaseFee: big.NewInt(1000)}, nil
}
func (s *chainStub) SendTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	s.sent = append(s.sent, tx)
	return nil
}
func (s *chainStub) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	if len(s.sent) == 0 {
		return nil, ethereum.NotFound
	}
	return &ethtypes.Receipt{Status: s.status, TxHash: hash}, nil
}
func (s *chainStub) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) { return 0, nil }

func newTestApprover(t *testing.T, stub *chainStub) (*Approver, types.Signer) {
	t.Helper()
	log := zap.NewNop()
	a, err := NewApprover(stub, NewSender(stub, 42161, log), log)
	require.NoError(t, err)
	key, err := wallet.FromHex(testPK)
	require.NoError(t, err)
	return a, key
}

func TestEnsureAllowance_SufficientIsNoop(t *testing.T) {
	stub := &chainStub{allowance: big.NewInt(2_000_000), status: 1}
	a, key := newTestApprover(t, stub)

	err := a.EnsureAllowance(context.Background(), usdt, spender, big.NewInt(1_000_000), key)
	require.NoError(t, err)
	assert.Empty(t, stub.sent, "covering allowance must not send a transaction")
}

func TestEnsureAllowance_SubmitsApproval(t *testing.T) {
	stub := &chainStub{allowance: big.NewInt(0), status: 1}
	a, key := newTestApprover(t, stub)

	err := a.EnsureAllowance(context.Background(), usdt, spender, big.NewInt(1_000_000), key)
	require.NoError(t, err)
	require.Len(t, stub.sent, 1)

	tx := stub.sent[0]
	assert.Equal(t, usdt.Address, *tx.To(), "approval targets the token contract")
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(approveGasLimit), tx.Gas())
	// 2*baseFee + tip keeps the tx valid through moderate base-fee growth.
	assert.Equal(t, int64(2100), tx.GasFeeCap().Int64())
	assert.Equal(t, uint8(ethtypes.DynamicFeeTxType), tx.Type())
}

func TestEnsureAllowance_RevertedApprovalFails(t *testing.T) {
	stub := &chainStub{allowance: big.NewInt(0), status: 0}
	a, key := newTestApprover(t, stub)

	err := a.EnsureAllowance(context.Background(), usdt, spender, big.NewInt(1_000_000), key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted")
}
