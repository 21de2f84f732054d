package account

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoCalls 空调用列表
var ErrNoCalls = errors.New("no calls to encode")

// 账户与工厂合约ABI（仅本核心用到的方法）
const (
	accountABIJSON = `[
		{"type":"function","name":"execute","inputs":[
			{"name":"dest","type":"address"},
			{"name":"value","type":"uint256"},
			{"name":"func","type":"bytes"}]},
		{"type":"function","name":"executeBatch","inputs":[
			{"name":"dest","type":"address[]"},
			{"name":"value","type":"uint256[]"},
			{"name":"func","type":"bytes[]"}]}
	]`

	factoryABIJSON = `[
		{"type":"function","name":"createAccount","inputs":[
			{"name":"owner","type":"address"},
			{"name":"salt","type":"uint256"}],
		 "outputs":[{"name":"ret","type":"address"}]}
	]`
)

var (
	accountABI = mustParseABI(accountABIJSON)
	factoryABI = mustParseABI(factoryABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// Call 一笔对目标合约的调用
type Call struct {
	To    common.Address
	Value *big.Int // nil 视为 0
	Data  []byte   // nil 视为空
}

// EncodeCalls 将调用序列编码为账户执行入口的调用数据
// 单笔走 execute(address,uint256,bytes)，多笔走
// executeBatch(address[],uint256[],bytes[])，严格保持输入顺序；
// 空列表返回 ErrNoCalls，不发起任何网络调用
func EncodeCalls(calls []Call) ([]byte, error) {
	if len(calls) == 0 {
		return nil, ErrNoCalls
	}

	if len(calls) == 1 {
		c := calls[0]
		data, err := accountABI.Pack("execute", c.To, orZero(c.Value), orEmpty(c.Data))
		if err != nil {
			return nil, fmt.Errorf("pack execute: %w", err)
		}
		return data, nil
	}

	targets := make([]common.Address, len(calls))
	values := make([]*big.Int, len(calls))
	payloads := make([][]byte, len(calls))
	for i, c := range calls {
		targets[i] = c.To
		values[i] = orZero(c.Value)
		payloads[i] = orEmpty(c.Data)
	}

	data, err := accountABI.Pack("executeBatch", targets, values, payloads)
	if err != nil {
		return nil, fmt.Errorf("pack executeBatch: %w", err)
	}
	return data, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
