package core

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/config"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/RecoveryAshes/AutoClicker/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir 配置表默认目录
	DefaultConfigDir = "config"

	// MaxWorkers 并发数上限
	MaxWorkers = 32
)

// Config 应用程序配置
type Config struct {
	General    GeneralConfig   `mapstructure:"general" yaml:"general"`
	Browser    BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Human      HumanConfig     `mapstructure:"human" yaml:"human"`
	Logging    LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	UserAgents UserAgentConfig `mapstructure:"user_agents" yaml:"user_agents"`
	Proxy      ProxyConfig     `mapstructure:"proxy" yaml:"proxy"`
	Report     ReportConfig    `mapstructure:"report" yaml:"report"`
}

// GeneralConfig 运行配置
type GeneralConfig struct {
	UseProxy        bool    `mapstructure:"use_proxy" yaml:"use_proxy"`
	ProxyType       string  `mapstructure:"proxy_type" yaml:"proxy_type"`
	MaxWorkers      int     `mapstructure:"max_workers" yaml:"max_workers"`
	Engine          string  `mapstructure:"engine" yaml:"engine"`
	ClicksPerSecond float64 `mapstructure:"clicks_per_second" yaml:"clicks_per_second"`
	ShowProgress    bool    `mapstructure:"show_progress" yaml:"show_progress"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	UseHeadless     bool     `mapstructure:"use_headless" yaml:"use_headless"`
	WindowWidth     int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int      `mapstructure:"window_height" yaml:"window_height"`
	PageLoadTimeout int      `mapstructure:"page_load_timeout" yaml:"page_load_timeout"` // 秒
	BinPath         string   `mapstructure:"bin_path" yaml:"bin_path"`
	ExtraFlags      []string `mapstructure:"extra_flags" yaml:"extra_flags"`
}

// HumanConfig 模拟人类行为配置
type HumanConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Scroll          bool          `mapstructure:"scroll" yaml:"scroll"`
	MinDwell        time.Duration `mapstructure:"min_dwell" yaml:"min_dwell"`
	MaxDwell        time.Duration `mapstructure:"max_dwell" yaml:"max_dwell"`
	ScrollThreshold int           `mapstructure:"scroll_threshold" yaml:"scroll_threshold"`
	MinScrolls      int           `mapstructure:"min_scrolls" yaml:"min_scrolls"`
	MaxScrolls      int           `mapstructure:"max_scrolls" yaml:"max_scrolls"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level" yaml:"level"`
	LogDir   string         `mapstructure:"log_dir" yaml:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// UserAgentConfig User-Agent配置
type UserAgentConfig struct {
	Platforms map[string][]string `mapstructure:"platforms" yaml:"platforms"`
	Default   []string            `mapstructure:"default" yaml:"default"`
}

// ProxyConfig 代理配置
type ProxyConfig struct {
	List             []string      `mapstructure:"list" yaml:"list"`
	File             string        `mapstructure:"file" yaml:"file"`
	CheckURL         string        `mapstructure:"check_url" yaml:"check_url"`
	CheckTimeout     time.Duration `mapstructure:"check_timeout" yaml:"check_timeout"`
	CheckConcurrency int           `mapstructure:"check_concurrency" yaml:"check_concurrency"`
}

// ReportConfig 报告配置
type ReportConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	JSON     bool   `mapstructure:"json" yaml:"json"`
	Markdown bool   `mapstructure:"markdown" yaml:"markdown"`
}

// LoadConfig 加载主配置
// configPath为空时在默认位置查找config.{json,yaml},找不到时使用默认值;
// 显式指定的文件不存在时返回错误
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		if err := config.ValidateFileSize(configPath); err != nil {
			return nil, err
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultConfigDir)
		v.AddConfigPath(".")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
		// 配置文件不存在,使用默认值
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}

	cfg.General.Engine = normalizePlatform(cfg.General.Engine)
	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: err}
	}

	return &cfg, nil
}

// DefaultConfig 返回全部默认值
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("general.use_proxy", false)
	v.SetDefault("general.proxy_type", "http")
	v.SetDefault("general.max_workers", 3)
	v.SetDefault("general.engine", "generic")
	v.SetDefault("general.clicks_per_second", 0)
	v.SetDefault("general.show_progress", true)

	v.SetDefault("browser.use_headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.page_load_timeout", 30)
	v.SetDefault("browser.bin_path", "")
	v.SetDefault("browser.extra_flags", []string{})

	v.SetDefault("human.enabled", true)
	v.SetDefault("human.scroll", true)
	v.SetDefault("human.min_dwell", time.Second)
	v.SetDefault("human.max_dwell", 5*time.Second)
	v.SetDefault("human.scroll_threshold", 1000)
	v.SetDefault("human.min_scrolls", 2)
	v.SetDefault("human.max_scrolls", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("user_agents.platforms", map[string][]string{})
	v.SetDefault("user_agents.default", []string{})

	v.SetDefault("proxy.list", []string{})
	v.SetDefault("proxy.file", "")
	v.SetDefault("proxy.check_url", "http://www.baidu.com")
	v.SetDefault("proxy.check_timeout", 5*time.Second)
	v.SetDefault("proxy.check_concurrency", 8)

	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.json", true)
	v.SetDefault("report.markdown", false)
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if c.General.MaxWorkers < 1 || c.General.MaxWorkers > MaxWorkers {
		return fmt.Errorf("并发数必须在1-%d之间: %d", MaxWorkers, c.General.MaxWorkers)
	}
	switch c.General.ProxyType {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("不支持的代理类型: %s", c.General.ProxyType)
	}
	if c.General.ClicksPerSecond < 0 {
		return fmt.Errorf("每秒点击数不能为负数: %v", c.General.ClicksPerSecond)
	}
	if c.Browser.PageLoadTimeout <= 0 {
		return fmt.Errorf("页面加载超时必须大于0: %d", c.Browser.PageLoadTimeout)
	}
	if c.Human.MinDwell < 0 || c.Human.MaxDwell < c.Human.MinDwell {
		return fmt.Errorf("停留时间范围无效: %v-%v", c.Human.MinDwell, c.Human.MaxDwell)
	}
	if c.Human.MinScrolls < 0 || c.Human.MaxScrolls < c.Human.MinScrolls {
		return fmt.Errorf("滚动次数范围无效: %d-%d", c.Human.MinScrolls, c.Human.MaxScrolls)
	}
	if c.General.UseProxy {
		if err := validateCheckURL(c.Proxy.CheckURL); err != nil {
			return err
		}
	}
	return nil
}

// validateCheckURL 代理检测地址为空时使用默认值,否则必须是带主机名的http(s)地址
func validateCheckURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return fmt.Errorf("代理检测地址无效: %w", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("代理检测地址必须使用http或https: %s", raw)
	case u.Hostname() == "":
		return fmt.Errorf("代理检测地址缺少主机名: %s", raw)
	}
	return nil
}

// normalizePlatform 平台名统一小写,与viper对map键的处理一致
func normalizePlatform(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CLIOverrides 命令行参数,零值表示未指定
type CLIOverrides struct {
	MaxWorkers      int
	Engine          string
	Headless        *bool
	UseProxy        *bool
	ProxyType       string
	ClicksPerSecond float64
	PageLoadTimeout int
	NoHuman         bool
	NoProgress      bool
	LogLevel        string
	ReportDir       string
	Markdown        bool
}

// MergeCLIFlags 合并命令行参数到配置
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	// 命令行参数优先于配置文件
	if o.MaxWorkers > 0 {
		c.General.MaxWorkers = o.MaxWorkers
	}
	if o.Engine != "" {
		c.General.Engine = normalizePlatform(o.Engine)
	}
	if o.Headless != nil {
		c.Browser.UseHeadless = *o.Headless
	}
	if o.UseProxy != nil {
		c.General.UseProxy = *o.UseProxy
	}
	if o.ProxyType != "" {
		c.General.ProxyType = o.ProxyType
	}
	if o.ClicksPerSecond > 0 {
		c.General.ClicksPerSecond = o.ClicksPerSecond
	}
	if o.PageLoadTimeout > 0 {
		c.Browser.PageLoadTimeout = o.PageLoadTimeout
	}
	if o.NoHuman {
		c.Human.Enabled = false
	}
	if o.NoProgress {
		c.General.ShowProgress = false
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.ReportDir != "" {
		c.Report.Dir = o.ReportDir
	}
	if o.Markdown {
		c.Report.Markdown = true
	}
}

// LogConfig 转换为日志配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// LaunchOptions 转换为浏览器启动参数,UA和代理由调用方填入
func (c *Config) LaunchOptions() browser.LaunchOptions {
	return browser.LaunchOptions{
		Headless:        c.Browser.UseHeadless,
		WindowWidth:     c.Browser.WindowWidth,
		WindowHeight:    c.Browser.WindowHeight,
		BinPath:         c.Browser.BinPath,
		ExtraFlags:      c.Browser.ExtraFlags,
		PageLoadTimeout: time.Duration(c.Browser.PageLoadTimeout) * time.Second,
	}
}

// HumanOptions 转换为人类行为参数
func (c *Config) HumanOptions() browser.HumanOptions {
	opts := browser.DefaultHumanOptions()
	opts.Enabled = c.Human.Enabled
	opts.Scroll = c.Human.Scroll
	opts.MinDwell = c.Human.MinDwell
	opts.MaxDwell = c.Human.MaxDwell
	opts.ScrollThreshold = c.Human.ScrollThreshold
	opts.MinScrolls = c.Human.MinScrolls
	opts.MaxScrolls = c.Human.MaxScrolls
	return opts
}
