package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/kopy-kat/permissionless-go/core/modules"
)

var (
	moduleType    uint64
	moduleAddress string
	moduleContext string
	modulePrev    string
	moduleWrapped bool
)

// moduleCmd 模块生命周期命令
var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "账户模块管理",
	Long:  "安装与卸载账户模块 (类型: 1=validator 2=executor 3=fallback 4=hook)",
}

// moduleInstallCmd 安装模块
var moduleInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "安装模块",
	Long: `安装模块并等待回执确认。

示例:
  pless module install --type 2 --address 0x4Fd8... --context 0x...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := parseModuleFlags()
		if err != nil {
			return err
		}
		if moduleWrapped {
			mod.Convention = modules.ConventionHookWrapped
		}

		client, err := getClient()
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.InstallModule(context.Background(), mod)
		printModuleResult("install", result)
		return err
	},
}

// moduleUninstallCmd 卸载模块
var moduleUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "卸载模块",
	Long: `卸载模块并等待回执确认。

链表注册表需要前驱指针，可用 --prev 自动编码卸载上下文，
或用 --context 直接提供完整的 ABI 编码上下文:

  pless module uninstall --type 2 --address 0x4Fd8... --prev 0x...0001`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := parseModuleFlags()
		if err != nil {
			return err
		}

		if modulePrev != "" {
			if mod.Context != nil {
				return fmt.Errorf("--prev 与 --context 不能同时使用")
			}
			mod.Context, err = modules.EncodeLinkedListContext(common.HexToAddress(modulePrev), nil)
			if err != nil {
				return err
			}
		}

		client, err := getClient()
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.UninstallModule(context.Background(), mod)
		printModuleResult("uninstall", result)
		return err
	},
}

func parseModuleFlags() (modules.Module, error) {
	if moduleAddress == "" {
		return modules.Module{}, fmt.Errorf("--address 不能为空")
	}
	if moduleType < 1 || moduleType > 4 {
		return modules.Module{}, fmt.Errorf("--type 必须为 1-4")
	}

	mod := modules.Module{
		Type:    modules.Type(moduleType),
		Address: common.HexToAddress(moduleAddress),
	}

	if moduleContext != "" {
		data, err := hexutil.Decode(moduleContext)
		if err != nil {
			return modules.Module{}, fmt.Errorf("无效的 --context: %w", err)
		}
		mod.Context = data
	}

	return mod, nil
}

func printModuleResult(action string, result *modules.Result) {
	if result == nil {
		return
	}
	fmt.Printf("动作:     %s\n", action)
	fmt.Printf("状态:     %s\n", result.Status)
	if result.OperationHash != (common.Hash{}) {
		fmt.Printf("操作哈希: %s\n", result.OperationHash.Hex())
	}
	if result.Receipt != nil {
		fmt.Printf("交易哈希: %s\n", result.Receipt.Receipt.TransactionHash.Hex())
		if result.Receipt.Reason != "" {
			fmt.Printf("原因:     %s\n", result.Receipt.Reason)
		}
	}
}

func init() {
	for _, cmd := range []*cobra.Command{moduleInstallCmd, moduleUninstallCmd} {
		cmd.Flags().Uint64Var(&moduleType, "type", 0, "模块类型ID")
		cmd.Flags().StringVar(&moduleAddress, "address", "", "模块合约地址")
		cmd.Flags().StringVar(&moduleContext, "context", "", "初始化/卸载上下文 (hex)")
	}
	moduleInstallCmd.Flags().BoolVar(&moduleWrapped, "hook-wrapped", false, "按hook包装约定编码初始化数据")
	moduleUninstallCmd.Flags().StringVar(&modulePrev, "prev", "", "链表注册表中的前驱模块地址")

	moduleCmd.AddCommand(moduleInstallCmd)
	moduleCmd.AddCommand(moduleUninstallCmd)
}
