package main

import (
	"fmt"

	"github.com/RecoveryAshes/AutoClicker/internal/config"
	"github.com/RecoveryAshes/AutoClicker/internal/core"
	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/spf13/cobra"
)

var (
	initDir   string
	initForce bool
)

// exampleTargets 目标表模板中的示例
var exampleTargets = []string{
	"https://www.163.com/dy/article/ABCD1234.html",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "生成配置文件模板",
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := config.WriteTemplates(initDir, engines.BuiltinPlatforms(), exampleTargets, initForce)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(written) == 0 {
			fmt.Fprintf(out, "配置文件已存在于 %s,使用 --force 覆盖\n", initDir)
			return nil
		}
		for _, path := range written {
			fmt.Fprintf(out, "已生成 %s\n", path)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", core.DefaultConfigDir, "输出目录")
	initCmd.Flags().BoolVar(&initForce, "force", false, "覆盖已存在的文件")
}
