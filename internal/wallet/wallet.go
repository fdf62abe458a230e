// Package wallet implements the signing credential: one secp256k1 key that
// signs both transactions and EIP-712 typed-data digests.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type Key struct {
	pk   *ecdsa.PrivateKey
	addr common.Address
}

// FromHex builds a Key from a hex-encoded private key, with or without the
// 0x prefix.
func FromHex(hexKey string) (*Key, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("bad private key: %w", err)
	}
	return &Key{pk: pk, addr: crypto.PubkeyToAddress(pk.PublicKey)}, nil
}

func (k *Key) Address() common.Address { return k.addr }

func (k *Key) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signed, err := ethtypes.SignTx(tx, ethtypes.NewLondonSigner(chainID), k.pk)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// SignTypedHash signs the EIP-712 digest keccak256("\x19\x01" || domain ||
// struct) and returns a 65-byte r||s||v signature with v in {27, 28}.
func (k *Key) SignTypedHash(domainSeparator, structHash []byte) ([]byte, error) {
	digest := crypto.Keccak256(
		[]byte{0x19, 0x01},
		domainSeparator,
		structHash,
	)
	sig, err := crypto.Sign(digest, k.pk)
	if err != nil {
		return nil, fmt.Errorf("sign typed data: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}
