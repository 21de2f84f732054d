package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// profileCmd profile管理命令
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "配置Profile管理",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有Profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := profileMgr.Current()
		if err != nil {
			return err
		}
		for _, name := range profileMgr.List() {
			marker := "  "
			if name == current.Name {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, name)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "显示Profile内容",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileMgr.Current()
		if len(args) == 1 {
			profile, err = profileMgr.Get(args[0])
		}
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "切换当前Profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profileMgr.UseProfile(args[0]); err != nil {
			return err
		}
		fmt.Printf("当前Profile: %s\n", args[0])
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUseCmd)
}
