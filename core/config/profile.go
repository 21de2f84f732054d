// Package config provides profile management for the CLI configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Profile CLI配置Profile
// 一个 profile 对应一条链 + 一个 bundler 端点 + 账户默认值
type Profile struct {
	Name    string `json:"name"`     // Profile名称: mainnet/sepolia/local
	ChainID uint64 `json:"chain_id"` // 链ID

	// bundler/链 JSON-RPC 端点（需同时提供 eth_* 链方法与 bundler 方法）
	BundlerURL string `json:"bundler_url"`

	// 账户默认值
	AccountVersion string `json:"account_version"`           // "1.1.0" / "2.0.0"
	Factory        string `json:"factory,omitempty"`         // 工厂地址覆盖；空用版本默认
	Salt           uint64 `json:"salt,omitempty"`            // 部署盐/索引
	AccountAddress string `json:"account_address,omitempty"` // 已知账户地址

	// 网络配置
	RequestTimeout Duration `json:"request_timeout"` // 单次RPC超时
	ReceiptTimeout Duration `json:"receipt_timeout"` // 回执等待时限
}

// Duration 时间duration(支持JSON序列化)
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(dur)
	return nil
}

// ProfileManager Profile管理器
type ProfileManager struct {
	configDir      string
	currentProfile string
	profiles       map[string]*Profile
}

// NewProfileManager 创建Profile管理器
func NewProfileManager(configDir string) (*ProfileManager, error) {
	if configDir == "" {
		// 默认配置目录: ~/.pless
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		configDir = filepath.Join(homeDir, ".pless")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	pm := &ProfileManager{
		configDir: configDir,
		profiles:  make(map[string]*Profile),
	}

	if err := pm.loadProfiles(); err != nil {
		return nil, err
	}

	// 没有当前profile时使用默认
	if err := pm.loadCurrentProfile(); err != nil {
		pm.currentProfile = "local"
	}

	return pm, nil
}

// loadProfiles 加载所有profiles
func (pm *ProfileManager) loadProfiles() error {
	profilesDir := filepath.Join(pm.configDir, "profiles")

	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		if err := os.MkdirAll(profilesDir, 0700); err != nil {
			return fmt.Errorf("create profiles dir: %w", err)
		}
		if err := pm.createDefaultProfiles(); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(profilesDir)
	if err != nil {
		return fmt.Errorf("read profiles dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		profilePath := filepath.Join(profilesDir, entry.Name())
		profile, err := pm.loadProfile(profilePath)
		if err != nil {
			// 记录错误但继续
			fmt.Fprintf(os.Stderr, "Warning: failed to load profile %s: %v\n", entry.Name(), err)
			continue
		}

		pm.profiles[profile.Name] = profile
	}

	return nil
}

// loadProfile 加载单个profile
func (pm *ProfileManager) loadProfile(filePath string) (*Profile, error) {
	//nolint:gosec // G304: filePath 来自配置目录，路径安全可控
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	return &profile, nil
}

// createDefaultProfiles 创建默认profiles
func (pm *ProfileManager) createDefaultProfiles() error {
	defaults := []*Profile{
		{
			Name:           "local",
			ChainID:        31337,
			BundlerURL:     "http://localhost:4337",
			AccountVersion: "2.0.0",
			RequestTimeout: Duration(30 * time.Second),
			ReceiptTimeout: Duration(60 * time.Second),
		},
		{
			Name:           "sepolia",
			ChainID:        11155111,
			BundlerURL:     "",
			AccountVersion: "2.0.0",
			RequestTimeout: Duration(30 * time.Second),
			ReceiptTimeout: Duration(120 * time.Second),
		},
	}

	for _, profile := range defaults {
		if err := pm.SaveProfile(profile); err != nil {
			return err
		}
	}
	return nil
}

// loadCurrentProfile 读取当前profile名
func (pm *ProfileManager) loadCurrentProfile() error {
	data, err := os.ReadFile(filepath.Join(pm.configDir, "current"))
	if err != nil {
		return err
	}

	name := strings.TrimSpace(string(data))
	if _, ok := pm.profiles[name]; !ok {
		return fmt.Errorf("current profile %q does not exist", name)
	}

	pm.currentProfile = name
	return nil
}

// SaveProfile 保存profile到磁盘
func (pm *ProfileManager) SaveProfile(profile *Profile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name is required")
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	profilePath := filepath.Join(pm.configDir, "profiles", profile.Name+".json")
	if err := os.WriteFile(profilePath, data, 0600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	pm.profiles[profile.Name] = profile
	return nil
}

// UseProfile 切换当前profile
func (pm *ProfileManager) UseProfile(name string) error {
	if _, ok := pm.profiles[name]; !ok {
		return fmt.Errorf("profile %q does not exist", name)
	}

	if err := os.WriteFile(filepath.Join(pm.configDir, "current"), []byte(name), 0600); err != nil {
		return fmt.Errorf("write current profile: %w", err)
	}

	pm.currentProfile = name
	return nil
}

// Current 当前profile
func (pm *ProfileManager) Current() (*Profile, error) {
	profile, ok := pm.profiles[pm.currentProfile]
	if !ok {
		return nil, fmt.Errorf("current profile %q does not exist", pm.currentProfile)
	}
	return profile, nil
}

// Get 按名称获取profile
func (pm *ProfileManager) Get(name string) (*Profile, error) {
	profile, ok := pm.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q does not exist", name)
	}
	return profile, nil
}

// List 所有profile名称
func (pm *ProfileManager) List() []string {
	names := make([]string, 0, len(pm.profiles))
	for name := range pm.profiles {
		names = append(names, name)
	}
	return names
}
