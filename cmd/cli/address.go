package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// addressCmd 推导并打印账户地址
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "推导账户地址",
	Long: `推导当前所有者与profile对应的反事实账户地址。

账户未部署时也能得到确定性地址:

  pless address --key <hex>
  pless address --mnemonic "..."`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := getClient()
		if err != nil {
			return err
		}
		defer client.Close()

		addr, err := client.GetAddress(context.Background())
		if err != nil {
			return fmt.Errorf("推导地址: %w", err)
		}

		deployed, err := client.Account().Deployed(context.Background())
		if err != nil {
			return fmt.Errorf("检查部署状态: %w", err)
		}

		fmt.Printf("账户地址: %s\n", addr.Hex())
		fmt.Printf("已部署:   %v\n", deployed)
		return nil
	},
}
