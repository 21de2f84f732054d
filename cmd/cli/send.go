package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/kopy-kat/permissionless-go/core/account"
)

var (
	sendTo    string
	sendValue string
	sendData  string
	sendWait  bool
)

// sendCmd 构建、签名并提交一笔用户操作
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "发送用户操作",
	Long: `将一笔调用打包为用户操作，签名后经 bundler 提交。

示例:
  pless send --to 0xdead... --value 1000000000000000
  pless send --to 0xdead... --data 0xa9059cbb... --wait`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendTo == "" {
			return fmt.Errorf("--to 不能为空")
		}

		call := account.Call{To: common.HexToAddress(sendTo)}
		if sendValue != "" {
			value, ok := new(big.Int).SetString(sendValue, 10)
			if !ok {
				return fmt.Errorf("无效的 --value: %s", sendValue)
			}
			call.Value = value
		}
		if sendData != "" {
			data, err := hexutil.Decode(sendData)
			if err != nil {
				return fmt.Errorf("无效的 --data: %w", err)
			}
			call.Data = data
		}

		client, err := getClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx := context.Background()
		opHash, err := client.SendCalls(ctx, []account.Call{call}, nil)
		if err != nil {
			return fmt.Errorf("提交操作: %w", err)
		}
		fmt.Printf("操作哈希: %s\n", opHash.Hex())

		if !sendWait {
			return nil
		}

		receipt, err := client.WaitForReceipt(ctx, opHash)
		if err != nil {
			return fmt.Errorf("等待回执: %w", err)
		}
		fmt.Printf("交易哈希: %s\n", receipt.Receipt.TransactionHash.Hex())
		fmt.Printf("成功:     %v\n", receipt.Success)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "目标地址")
	sendCmd.Flags().StringVar(&sendValue, "value", "", "转账金额 (wei, 十进制)")
	sendCmd.Flags().StringVar(&sendData, "data", "", "调用数据 (hex)")
	sendCmd.Flags().BoolVar(&sendWait, "wait", false, "等待回执")
}
