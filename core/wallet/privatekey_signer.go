package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeyOwner 基于原始 secp256k1 私钥的所有者签名器
type PrivateKeyOwner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

var _ Owner = (*PrivateKeyOwner)(nil)

// NewPrivateKeyOwner 从已有私钥创建签名器
func NewPrivateKeyOwner(key *ecdsa.PrivateKey) (*PrivateKeyOwner, error) {
	if key == nil {
		return nil, errors.New("private key is required")
	}
	return &PrivateKeyOwner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// NewPrivateKeyOwnerFromHex 从十六进制私钥创建签名器
func NewPrivateKeyOwnerFromHex(hexKey string) (*PrivateKeyOwner, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewPrivateKeyOwner(key)
}

// Address 所有者地址
func (o *PrivateKeyOwner) Address() common.Address {
	return o.addr
}

// SignHash 对摘要签名，V 调整为 27/28
func (o *PrivateKeyOwner) SignHash(digest []byte) ([]byte, error) {
	if len(digest) != common.HashLength {
		return nil, fmt.Errorf("sign hash: digest must be %d bytes, got %d", common.HashLength, len(digest))
	}
	sig, err := crypto.Sign(digest, o.key)
	if err != nil {
		return nil, fmt.Errorf("sign hash: %w", err)
	}
	// crypto.Sign 返回的恢复位是 0/1，链上验证按以太坊惯例使用 27/28
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
