package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/core"
	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/RecoveryAshes/AutoClicker/internal/proxy"
	"github.com/RecoveryAshes/AutoClicker/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile    string
	platformsFile string
	articlesFile  string
	verbose       bool
	logLevel      string

	// 点击参数
	urlFile         string
	maxWorkers      int
	engine          string
	headless        bool
	useProxy        bool
	proxyType       string
	proxyFile       string
	userAgent       string
	clicksPerSecond float64
	pageLoadTimeout int
	noHuman         bool
	noProgress      bool
	reportDir       string
	markdown        bool
)

// 由PersistentPreRunE初始化
var (
	appConfig *core.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "autoclicker [目标...]",
	Short: "基于浏览器的文章自动点击工具",
	Long: `AutoClicker - 使用真实浏览器访问文章页面的自动点击工具

所有worker共用一个浏览器,同一时刻只有一个任务操作页面。
支持的平台: csdn, xueqiu, sohu, netease, toutiao, smzdm,
以及按域名自动识别平台的 generic 模式。

目标来源(按优先级):
  1. 命令行参数
  2. --url-file 指定的文件,每行一个
  3. 目标表 config/articles.json 中的 clicks.values

示例:
  # 通用模式,直接访问URL
  autoclicker https://www.163.com/dy/article/ABCD1234.html

  # CSDN文章,标识格式 user_id:article_id
  autoclicker -e csdn 2501_94652164:155947200

  # 生成配置模板
  autoclicker init

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init和version不需要加载配置
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.MergeCLIFlags(overridesFromFlags(cmd))
		if err := config.Validate(); err != nil {
			return fmt.Errorf("参数无效: %w", err)
		}

		logConfig := config.LogConfig()
		if verbose && logLevel == "" {
			logConfig.Level = "debug"
		}

		l, closer, err := utils.NewLogger(logConfig, os.Stderr)
		if err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		logger = l
		logCloser = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	RunE: runClicker,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "AutoClicker %s\n", Version)
		fmt.Fprintf(out, "构建时间: %s\n", BuildTime)
		fmt.Fprintf(out, "支持平台: %s\n", strings.Join(engines.DefaultRegistry().Names(), ", "))
	},
}

// overridesFromFlags 只收集用户显式指定的参数
func overridesFromFlags(cmd *cobra.Command) core.CLIOverrides {
	o := core.CLIOverrides{
		MaxWorkers:      maxWorkers,
		Engine:          engine,
		ProxyType:       proxyType,
		ClicksPerSecond: clicksPerSecond,
		PageLoadTimeout: pageLoadTimeout,
		NoHuman:         noHuman,
		NoProgress:      noProgress,
		LogLevel:        logLevel,
		ReportDir:       reportDir,
		Markdown:        markdown,
	}
	if f := cmd.Flags().Lookup("headless"); f != nil && f.Changed {
		o.Headless = &headless
	}
	if f := cmd.Flags().Lookup("proxy"); f != nil && f.Changed {
		o.UseProxy = &useProxy
	}
	return o
}

func runClicker(cmd *cobra.Command, args []string) error {
	// Ctrl+C 后不再派发新目标,等待进行中的任务结束并释放浏览器
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := engines.DefaultRegistry()
	if err := ValidateFlags(appConfig.General.Engine, registry); err != nil {
		return err
	}

	platforms, err := loadPlatforms(platformsFile)
	if err != nil {
		return err
	}

	targets, err := collectTargets(args, urlFile, articlesFile)
	if err != nil {
		if errors.Is(err, core.ErrNoTargets) && len(args) == 0 && urlFile == "" {
			logger.Warn().Msg("没有点击目标")
			return cmd.Help()
		}
		return err
	}

	status := core.HostCheck(core.DefaultHostProbe(), appConfig.General.MaxWorkers, logger)

	uaManager, err := core.NewUserAgentManager(appConfig.UserAgents, userAgent, logger)
	if err != nil {
		return fmt.Errorf("User-Agent无效: %w", err)
	}

	var proxies proxySource
	if appConfig.General.UseProxy {
		m, err := newProxyManager(ctx, appConfig)
		if err != nil {
			return err
		}
		proxies = m
	}

	dispatcher := core.NewDispatcher(
		core.DispatchConfig{
			Workers:         status.Workers,
			Engine:          appConfig.General.Engine,
			ClicksPerSecond: appConfig.General.ClicksPerSecond,
			ShowProgress:    appConfig.General.ShowProgress,
			ProgressWriter:  cmd.ErrOrStderr(),
		},
		core.Deps{
			NewSession: sessionFactory(appConfig, uaManager, proxies, browser.NewRodLauncher(logger)),
			Registry:   registry,
			Platforms:  platforms,
			UserAgents: uaManager,
			Humanizer:  browser.NewHumanizer(appConfig.HumanOptions(), nil, logger),
			Logger:     logger,
		},
	)

	report, err := dispatcher.Run(ctx, targets)
	if err != nil {
		return err
	}

	reporter := utils.NewReporter(utils.ReportOptions{
		Dir:      appConfig.Report.Dir,
		JSON:     appConfig.Report.JSON,
		Markdown: appConfig.Report.Markdown,
	}, logger)
	reporter.PrintSummary(cmd.OutOrStdout(), report)

	paths, err := reporter.Write(report)
	if err != nil {
		logger.Warn().Err(err).Msg("保存报告失败")
	}
	for _, p := range paths {
		logger.Info().Str("path", p).Msg("报告已保存")
	}

	if ctx.Err() != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "操作被用户中断")
	}
	return nil
}

// proxySource 提供代理并补全协议
type proxySource interface {
	models.ProxyProvider
	URL(proxy string) string
}

// sessionFactory 启动浏览器时选定初始User-Agent和代理
func sessionFactory(cfg *core.Config, uas models.UserAgentProvider, proxies proxySource, launcher browser.Launcher) core.SessionFactory {
	return func(ctx context.Context) (*browser.Session, error) {
		opts := cfg.LaunchOptions()
		opts.UserAgent = uas.UserAgentFor(cfg.General.Engine)

		if proxies != nil {
			if p, ok := proxies.Get(); ok {
				opts.Proxy = proxies.URL(p)
			} else {
				logger.Warn().Msg("没有可用代理,直接连接")
			}
		}

		return browser.Open(ctx, opts, launcher, logger)
	}
}

func newProxyManager(ctx context.Context, cfg *core.Config) (*proxy.Manager, error) {
	m := proxy.NewManager(proxy.Options{
		Type:         cfg.General.ProxyType,
		CheckURL:     cfg.Proxy.CheckURL,
		CheckTimeout: cfg.Proxy.CheckTimeout,
		Concurrency:  cfg.Proxy.CheckConcurrency,
	}, logger)

	m.Add(cfg.Proxy.List...)

	file := cfg.Proxy.File
	if proxyFile != "" {
		file = proxyFile
	}
	if file != "" {
		if err := m.LoadFile(file); err != nil {
			return nil, err
		}
	}

	if len(m.Proxies()) == 0 {
		logger.Warn().Msg("已启用代理但没有配置代理地址")
		return m, nil
	}

	logger.Info().Strs("proxies", utils.RedactProxies(m.Proxies())).Msg("正在验证代理")
	m.ValidateAll(ctx)
	return m, nil
}

// loadPlatforms 平台表缺失时使用空表继续
func loadPlatforms(path string) ([]models.Platform, error) {
	if path == "" {
		path = core.DefaultTablePath("platforms")
	}
	platforms, err := core.LoadPlatforms(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Msg("平台表不存在,generic模式将无法识别平台")
			return platforms, nil
		}
		return nil, fmt.Errorf("加载平台表失败: %w", err)
	}
	logger.Debug().Int("count", len(platforms)).Msg("平台表已加载")
	return platforms, nil
}

// collectTargets 命令行参数 > url文件 > 目标表
func collectTargets(args []string, urlFile, articlesPath string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	if urlFile != "" {
		targets, err := utils.ReadTargetsFromFile(urlFile)
		if err != nil {
			return nil, fmt.Errorf("读取目标文件失败: %w", err)
		}
		return targets, nil
	}

	if articlesPath == "" {
		articlesPath = core.DefaultTablePath("articles")
	}
	targets, err := core.LoadTargets(articlesPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.ErrNoTargets
		}
		return nil, fmt.Errorf("加载目标表失败: %w", err)
	}
	if len(targets) == 0 {
		return nil, core.ErrNoTargets
	}
	return targets, nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认 config/config.{json,yaml})")
	rootCmd.PersistentFlags().StringVar(&platformsFile, "platforms", "", "平台表路径 (默认 config/platforms.json)")
	rootCmd.PersistentFlags().StringVar(&articlesFile, "articles", "", "目标表路径 (默认 config/articles.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&engine, "engine", "e", "", "点击策略 (generic|csdn|xueqiu|sohu|netease|toutiao|smzdm)")

	// 点击参数
	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "目标文件,每行一个")
	rootCmd.Flags().IntVarP(&maxWorkers, "workers", "w", 0, "并发worker数 (1-32)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().BoolVar(&useProxy, "proxy", false, "通过代理访问")
	rootCmd.Flags().StringVar(&proxyType, "proxy-type", "", "代理类型 (http|https|socks5)")
	rootCmd.Flags().StringVar(&proxyFile, "proxy-file", "", "代理文件,每行一个")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "固定使用的User-Agent")
	rootCmd.Flags().Float64Var(&clicksPerSecond, "cps", 0, "每秒点击数上限")
	rootCmd.Flags().IntVar(&pageLoadTimeout, "timeout", 0, "页面加载超时(秒)")
	rootCmd.Flags().BoolVar(&noHuman, "no-human", false, "关闭停留和滚动模拟")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")
	rootCmd.Flags().StringVarP(&reportDir, "output", "o", "", "报告目录")
	rootCmd.Flags().BoolVar(&markdown, "markdown", false, "同时生成Markdown报告")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %+v\n", err)
		os.Exit(1)
	}
}
