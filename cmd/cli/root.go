package main

import (
	"fmt"
	"math/big"
	"os"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	permissionless "github.com/kopy-kat/permissionless-go"
	"github.com/kopy-kat/permissionless-go/core/account"
	"github.com/kopy-kat/permissionless-go/core/config"
	"github.com/kopy-kat/permissionless-go/core/wallet"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	Profile    string // Profile名称
	ConfigDir  string // 配置目录
	PrivateKey string // 所有者私钥(hex)；留空且未给助记词时交互输入
	Mnemonic   string // 所有者助记词
	Verbose    bool   // 详细模式
}

var (
	globalFlags GlobalFlags
	profileMgr  *config.ProfileManager
	logger      *zap.Logger
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "pless",
	Short: "ERC-4337 智能账户命令行客户端",
	Long: `pless - 智能账户的薄客户端

提供智能账户的完整交互能力:
- 推导反事实账户地址
- 构建、签名并经 bundler 提交用户操作
- 安装/卸载账户模块 (ERC-7579)

端点、账户版本等配置通过 profile 管理 (~/.pless)。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		profileMgr, err = config.NewProfileManager(globalFlags.ConfigDir)
		if err != nil {
			return fmt.Errorf("初始化配置: %w", err)
		}

		if globalFlags.Verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		if err != nil {
			return fmt.Errorf("初始化日志: %w", err)
		}

		return nil
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Profile, "profile", "", "使用指定的Profile (默认使用当前Profile)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigDir, "config-dir", "", "配置目录 (默认: ~/.pless)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.PrivateKey, "key", "", "所有者私钥 (hex, 不推荐明文传递)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Mnemonic, "mnemonic", "", "所有者BIP39助记词")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "详细输出")

	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(moduleCmd)
	rootCmd.AddCommand(profileCmd)
}

// currentProfile 解析生效的profile
func currentProfile() (*config.Profile, error) {
	if globalFlags.Profile != "" {
		return profileMgr.Get(globalFlags.Profile)
	}
	return profileMgr.Current()
}

// getOwner 按标志解析所有者签名器，缺省时交互输入私钥
func getOwner() (wallet.Owner, error) {
	if globalFlags.Mnemonic != "" {
		return wallet.NewMnemonicOwner(globalFlags.Mnemonic, "", nil)
	}

	keyHex := globalFlags.PrivateKey
	if keyHex == "" {
		fmt.Fprint(os.Stderr, "所有者私钥: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("读取私钥: %w", err)
		}
		keyHex = string(raw)
	}

	return wallet.NewPrivateKeyOwnerFromHex(keyHex)
}

// getClient 按当前profile与所有者组装SDK客户端
func getClient() (*permissionless.Client, error) {
	profile, err := currentProfile()
	if err != nil {
		return nil, fmt.Errorf("获取Profile: %w", err)
	}
	if profile.BundlerURL == "" {
		return nil, fmt.Errorf("profile %q 未配置 bundler_url", profile.Name)
	}

	owner, err := getOwner()
	if err != nil {
		return nil, err
	}

	cfg := account.Config{
		Owner:   owner,
		Version: account.Version(profile.AccountVersion),
		Salt:    new(big.Int).SetUint64(profile.Salt),
		Logger:  logger,
	}
	if profile.Factory != "" {
		cfg.Factory = common.HexToAddress(profile.Factory)
	}
	if profile.AccountAddress != "" {
		cfg.Address = common.HexToAddress(profile.AccountAddress)
	}

	return permissionless.New(cfg, permissionless.Options{
		BundlerURL:     profile.BundlerURL,
		RequestTimeout: time.Duration(profile.RequestTimeout),
		ReceiptTimeout: time.Duration(profile.ReceiptTimeout),
		Logger:         logger,
	})
}
