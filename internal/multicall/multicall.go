// Package multicall batches independent eth_call reads through a Multicall2
// contract. tryAggregate with requireSuccess=false lets one reverting
// target report failure for its own slot without poisoning the batch;
// balance discovery relies on exactly that behavior.
package multicall

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const multicall2ABI = `[
{
    "inputs": [
        {"name": "requireSuccess", "type": "bool"},
        {
            "components": [
                {"name": "target", "type": "address"},
                {"name": "callData", "type": "bytes"}
            ],
            "name": "calls",
            "type": "tuple[]"
        }
    ],
    "name": "tryAggregate",
    "outputs": [
        {
            "components": [
                {"name": "success", "type": "bool"},
                {"name": "returnData", "type": "bytes"}
            ],
            "name": "returnData",
            "type": "tuple[]"
        }
    ],
    "stateMutability": "nonpayable",
    "type": "function"
}
]`

// Caller is the single ethclient method this package needs.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type IClient interface {
	TryAggregate(ctx context.Context, calls []Call) ([]Result, error)
}

type Client struct {
	c    Caller
	addr common.Address
	abi  abi.ABI
}

func New(c Caller, multicallAddr common.Address) (IClient, error) {
	parsedABI, err := abi.JSON(strings.NewReader(multicall2ABI))
	if err != nil {
		return nil, fmt.Errorf("bad abi: %w", err)
	}
	return &Client{c: c, addr: multicallAddr, abi: parsedABI}, nil
}

type Call struct {
	Target   common.Address
	CallData []byte
}

type Result struct {
	Success bool
	Data    []byte
}

func (c *Client) TryAggregate(ctx context.Context, calls []Call) ([]Result, error) {
	payload, err := c.abi.Pack("tryAggregate", false, calls)
	if err != nil {
		return nil, fmt.Errorf("pack tryAggregate: %w", err)
	}

	res, err := c.c.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("call tryAggregate: %w", err)
	}

	type returnItem struct {
		Success    bool
		ReturnData []byte
	}
	var items []returnItem
	if err := c.abi.UnpackIntoInterface(&items, "tryAggregate", res); err != nil {
		return nil, fmt.Errorf("unpack tryAggregate: %w", err)
	}
	if len(items) != len(calls) {
		return nil, fmt.Errorf("tryAggregate returned %d results for %d calls", len(items), len(calls))
	}

	out := make([]Result, len(items))
	for i, r := range items {
		out[i] = Result{Success: r.Success, Data: r.ReturnData}
	}
	return out, nil
}
