package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath 以太坊默认派生路径 m/44'/60'/0'/0/0
var DefaultDerivationPath = DerivationPath{44 + hdkeychain.HardenedKeyStart, 60 + hdkeychain.HardenedKeyStart, hdkeychain.HardenedKeyStart, 0, 0}

// DerivationPath BIP32 派生路径（各段为子索引，含硬化偏移）
type DerivationPath []uint32

// MnemonicOwner 助记词所有者签名器
// 从 BIP39 助记词派生 secp256k1 密钥；派生结果按路径缓存
type MnemonicOwner struct {
	masterKey *hdkeychain.ExtendedKey
	path      DerivationPath

	mu   sync.Mutex
	key  *ecdsa.PrivateKey
	addr common.Address
}

var _ Owner = (*MnemonicOwner)(nil)

// NewMnemonicOwner 从助记词创建签名器
// path 为空时使用以太坊默认路径 m/44'/60'/0'/0/0
func NewMnemonicOwner(mnemonic, passphrase string, path DerivationPath) (*MnemonicOwner, error) {
	if mnemonic == "" {
		return nil, errors.New("mnemonic is required")
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	// 主网参数仅用于 HD 派生，不影响以太坊地址格式
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	if len(path) == 0 {
		path = DefaultDerivationPath
	}

	return &MnemonicOwner{masterKey: masterKey, path: path}, nil
}

// Address 所有者地址（首次调用时派生）
func (o *MnemonicOwner) Address() common.Address {
	if _, err := o.derivedKey(); err != nil {
		return common.Address{}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.addr
}

// SignHash 对摘要签名，V 调整为 27/28
func (o *MnemonicOwner) SignHash(digest []byte) ([]byte, error) {
	if len(digest) != common.HashLength {
		return nil, fmt.Errorf("sign hash: digest must be %d bytes, got %d", common.HashLength, len(digest))
	}
	key, err := o.derivedKey()
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, fmt.Errorf("sign hash: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// derivedKey 按路径派生私钥，结果缓存
func (o *MnemonicOwner) derivedKey() (*ecdsa.PrivateKey, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.key != nil {
		return o.key, nil
	}

	node := o.masterKey
	for _, index := range o.path {
		child, err := node.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", index, err)
		}
		node = child
	}

	privKey, err := node.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key: %w", err)
	}

	o.key = privKey.ToECDSA()
	// go-ethereum 的 crypto.Sign 按类型比较曲线，需替换为其 S256 单例
	o.key.Curve = crypto.S256()
	o.addr = crypto.PubkeyToAddress(o.key.PublicKey)
	return o.key, nil
}
