package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/RecoveryAshes/AutoClicker/internal/core"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"
)

// checkItem 环境检查结果
type checkItem struct {
	Name     string
	OK       bool
	Required bool // 必需项失败时检查不通过
	Detail   string
}

// setupEnv 检查依赖的外部环境,测试中可替换
type setupEnv struct {
	LookBrowser func() (string, bool)
	Stat        func(string) (os.FileInfo, error)
	Probe       core.HostProbe
}

func defaultSetupEnv() setupEnv {
	return setupEnv{
		LookBrowser: launcher.LookPath,
		Stat:        os.Stat,
		Probe:       core.DefaultHostProbe(),
	}
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境(浏览器、配置文件、主机资源)",
	RunE: func(cmd *cobra.Command, args []string) error {
		items := runSetupChecks(defaultSetupEnv(), appConfig)
		if !printSetupChecks(cmd.OutOrStdout(), items) {
			return fmt.Errorf("环境检查未通过")
		}
		return nil
	},
}

func runSetupChecks(env setupEnv, cfg *core.Config) []checkItem {
	items := []checkItem{
		{Name: "操作系统", OK: true, Detail: runtime.GOOS + "/" + runtime.GOARCH},
	}

	// 浏览器: 配置了路径时只检查该路径,否则查找系统浏览器
	if cfg.Browser.BinPath != "" {
		_, err := env.Stat(cfg.Browser.BinPath)
		items = append(items, checkItem{
			Name:     "浏览器",
			OK:       err == nil,
			Required: true,
			Detail:   cfg.Browser.BinPath,
		})
	} else if path, ok := env.LookBrowser(); ok {
		items = append(items, checkItem{Name: "浏览器", OK: true, Detail: path})
	} else {
		items = append(items, checkItem{Name: "浏览器", Detail: "未找到系统浏览器,首次运行时会自动下载Chromium"})
	}

	for _, name := range []string{"platforms", "articles"} {
		path := core.DefaultTablePath(name)
		_, err := env.Stat(path)
		detail := path
		if err != nil {
			detail = path + " 不存在,可运行 'autoclicker init' 生成"
		}
		items = append(items, checkItem{Name: name + "表", OK: err == nil, Detail: detail})
	}

	status := core.HostCheck(env.Probe, cfg.General.MaxWorkers, logger)
	items = append(items, checkItem{
		Name:   "内存",
		OK:     status.Pressure != core.PressureHigh,
		Detail: fmt.Sprintf("压力 %s, 并发 %d", status.Pressure, status.Workers),
	})

	return items
}

// printSetupChecks 输出检查结果,返回必需项是否全部通过
func printSetupChecks(w io.Writer, items []checkItem) bool {
	allOK := true
	for _, item := range items {
		mark := "✅"
		switch {
		case !item.OK && item.Required:
			mark = "❌"
			allOK = false
		case !item.OK:
			mark = "⚠️ "
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, item.Name, item.Detail)
	}

	if allOK {
		fmt.Fprintln(w, "✅ 环境验证通过")
	} else {
		fmt.Fprintln(w, "❌ 环境验证失败,请解决上述问题")
	}
	return allOK
}
