// Package cowswap is the off-chain batch-auction backend. Quotes come from
// the order-book API; execution means signing a GPv2 order via EIP-712,
// posting it, and polling until the order reaches a terminal state.
package cowswap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const SourceName = "cowswap"

// Pre-computed keccak256 of the canonical GPv2 type strings.
var (
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(address sellToken,address buyToken,address receiver,uint256 sellAmount,uint256 buyAmount,uint32 validTo,bytes32 appData,uint256 feeAmount,string kind,bool partiallyFillable,string sellTokenBalance,string buyTokenBalance)"),
	)

	kindSellHash     = ethcrypto.Keccak256([]byte("sell"))
	balanceERC20Hash = ethcrypto.Keccak256([]byte("erc20"))
)

// Order is a GPv2 sell order as submitted to the settlement contract's
// order book.
type Order struct {
	SellToken         common.Address
	BuyToken          common.Address
	Receiver          common.Address
	SellAmount        *big.Int
	BuyAmount         *big.Int
	ValidTo           uint32
	AppData           [32]byte
	FeeAmount         *big.Int
	PartiallyFillable bool
}

// domainSeparator builds the settlement contract's EIP-712 domain hash.
func domainSeparator(chainID int64, settlement common.Address) []byte {
	return ethcrypto.Keccak256(
		eip712DomainTypeHash,
		ethcrypto.Keccak256([]byte("Gnosis Protocol")),
		ethcrypto.Keccak256([]byte("v2")),
		bigIntTo32Bytes(big.NewInt(chainID)),
		common.LeftPadBytes(settlement.Bytes(), 32),
	)
}

// structHash encodes the order per EIP-712. kind is always "sell" and both
// balance slots are plain erc20 transfers.
func (o Order) structHash() []byte {
	return ethcrypto.Keccak256(
		orderTypeHash,
		common.LeftPadBytes(o.SellToken.Bytes(), 32),
		common.LeftPadBytes(o.BuyToken.Bytes(), 32),
		common.LeftPadBytes(o.Receiver.Bytes(), 32),
		bigIntTo32Bytes(o.SellAmount),
		bigIntTo32Bytes(o.BuyAmount),
		bigIntTo32Bytes(big.NewInt(int64(o.ValidTo))),
		o.AppData[:],
		bigIntTo32Bytes(o.FeeAmount),
		kindSellHash,
		boolTo32Bytes(o.PartiallyFillable),
		balanceERC20Hash,
		balanceERC20Hash,
	)
}

func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

func boolTo32Bytes(v bool) []byte {
	b := make([]byte, 32)
	if v {
		b[31] = 1
	}
	return b
}
