package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/kopy-kat/permissionless-go/core/userop"
)

// 入口点调用的函数选择器（keccak 前4字节）
var (
	selGetSenderAddress = crypto.Keccak256([]byte("getSenderAddress(bytes)"))[:4]
	selGetNonce         = crypto.Keccak256([]byte("getNonce(address,uint192)"))[:4]
	// SenderAddressResult(address) 定制错误选择器，入口点以 revert 形式返回反事实地址
	selSenderAddressResult = crypto.Keccak256([]byte("SenderAddressResult(address)"))[:4]
)

// DefaultPollInterval 回执轮询间隔
const DefaultPollInterval = 2 * time.Second

// JSONRPCClient JSON-RPC 2.0 客户端实现
// 同一端点需同时提供链方法（eth_call 等）与 bundler 方法（eth_sendUserOperation 等）
type JSONRPCClient struct {
	endpoint     string
	httpClient   *http.Client
	nextID       atomic.Uint64
	pollInterval time.Duration
}

// NewJSONRPCClient 创建JSON-RPC客户端
func NewJSONRPCClient(endpoint string, timeout time.Duration) *JSONRPCClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &JSONRPCClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		pollInterval: DefaultPollInterval,
	}
}

// jsonrpcRequest JSON-RPC 2.0 请求
type jsonrpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// jsonrpcResponse JSON-RPC 2.0 响应
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// RPCError JSON-RPC 2.0 错误，原样透传给调用方
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// call 统一的JSON-RPC调用方法
func (c *JSONRPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	// 构建请求
	req := &jsonrpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	// 创建HTTP请求
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	// 发送请求
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	// 读取响应
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// 解析响应
	var jsonResp jsonrpcResponse
	if err := json.Unmarshal(respBody, &jsonResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	// 检查错误
	if jsonResp.Error != nil {
		return jsonResp.Error
	}

	// 解析结果
	if result != nil && len(jsonResp.Result) > 0 {
		if err := json.Unmarshal(jsonResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// ===== 接口实现 =====

func (c *JSONRPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	var chainID hexutil.Big
	if err := c.call(ctx, "eth_chainId", nil, &chainID); err != nil {
		return nil, err
	}
	return chainID.ToInt(), nil
}

func (c *JSONRPCClient) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	var code hexutil.Bytes
	err := c.call(ctx, "eth_getCode", []interface{}{addr, "latest"}, &code)
	return code, err
}

// SenderAddress 调用入口点 getSenderAddress(initCode)
// 入口点按规范必定 revert SenderAddressResult(address)，地址从 revert 数据中解出；
// 调用正常返回视为节点行为异常
func (c *JSONRPCClient) SenderAddress(ctx context.Context, entryPoint common.Address, initCode []byte) (common.Address, error) {
	data := packBytesCall(selGetSenderAddress, initCode)

	callObj := map[string]interface{}{
		"to":   entryPoint,
		"data": hexutil.Bytes(data),
	}

	var out hexutil.Bytes
	err := c.call(ctx, "eth_call", []interface{}{callObj, "latest"}, &out)
	if err == nil {
		return common.Address{}, fmt.Errorf("getSenderAddress did not revert")
	}

	rpcErr, ok := err.(*RPCError)
	if !ok {
		return common.Address{}, err
	}

	revertData, ok := extractRevertData(rpcErr)
	if !ok {
		return common.Address{}, fmt.Errorf("getSenderAddress: no revert data: %w", rpcErr)
	}

	// SenderAddressResult(address): 4字节选择器 + 32字节左填充地址
	if len(revertData) != 36 || !bytes.Equal(revertData[:4], selSenderAddressResult) {
		return common.Address{}, fmt.Errorf("getSenderAddress: unexpected revert data 0x%x", revertData)
	}

	return common.BytesToAddress(revertData[16:36]), nil
}

func (c *JSONRPCClient) GetNonce(ctx context.Context, entryPoint, sender common.Address, key *big.Int) (*big.Int, error) {
	if key == nil {
		key = new(big.Int)
	}

	data := make([]byte, 0, 4+64)
	data = append(data, selGetNonce...)
	data = append(data, common.LeftPadBytes(sender.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(key.Bytes(), 32)...)

	callObj := map[string]interface{}{
		"to":   entryPoint,
		"data": hexutil.Bytes(data),
	}

	var out hexutil.Bytes
	if err := c.call(ctx, "eth_call", []interface{}{callObj, "latest"}, &out); err != nil {
		return nil, err
	}
	if len(out) != 32 {
		return nil, fmt.Errorf("getNonce: unexpected return data 0x%x", []byte(out))
	}

	return new(big.Int).SetBytes(out), nil
}

func (c *JSONRPCClient) SendUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address, version userop.EntryPointVersion) (common.Hash, error) {
	var opHash common.Hash
	err := c.call(ctx, "eth_sendUserOperation", []interface{}{op.RPCFormat(version), entryPoint}, &opHash)
	return opHash, err
}

func (c *JSONRPCClient) EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entryPoint common.Address, version userop.EntryPointVersion) (*GasEstimate, error) {
	var estimate GasEstimate
	if err := c.call(ctx, "eth_estimateUserOperationGas", []interface{}{op.RPCFormat(version), entryPoint}, &estimate); err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (c *JSONRPCClient) GetUserOperationReceipt(ctx context.Context, opHash common.Hash) (*UserOperationReceipt, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "eth_getUserOperationReceipt", []interface{}{opHash}, &raw); err != nil {
		return nil, err
	}

	// bundler 对未知/未打包的哈希返回 null
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrReceiptNotFound
	}

	var receipt UserOperationReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}

	return &receipt, nil
}

func (c *JSONRPCClient) WaitForUserOperationReceipt(ctx context.Context, opHash common.Hash, timeout time.Duration) (*UserOperationReceipt, error) {
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetUserOperationReceipt(ctx, opHash)
		if err == nil {
			return receipt, nil
		}
		if err != ErrReceiptNotFound {
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, ErrReceiptTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *JSONRPCClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// packBytesCall 编码 selector ++ abi.encode(bytes) 形式的调用数据
func packBytesCall(selector, arg []byte) []byte {
	padded := common.RightPadBytes(arg, (len(arg)+31)/32*32)

	data := make([]byte, 0, 4+64+len(padded))
	data = append(data, selector...)
	data = append(data, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(arg))).Bytes(), 32)...)
	data = append(data, padded...)
	return data
}

// extractRevertData 从RPC错误中提取revert数据
// 节点实现不一：data 可能是十六进制字符串，也可能嵌套 {"data": "0x..."}
func extractRevertData(rpcErr *RPCError) ([]byte, bool) {
	if len(rpcErr.Data) == 0 {
		return nil, false
	}

	var hexStr string
	if err := json.Unmarshal(rpcErr.Data, &hexStr); err != nil {
		var nested struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal(rpcErr.Data, &nested); err != nil || nested.Data == "" {
			return nil, false
		}
		hexStr = nested.Data
	}

	if !strings.HasPrefix(hexStr, "0x") {
		return nil, false
	}

	data, err := hexutil.Decode(hexStr)
	if err != nil {
		return nil, false
	}
	return data, true
}

// 确保实现了Client接口
var _ Client = (*JSONRPCClient)(nil)
