package core

import (
	"math/rand"

	"github.com/RecoveryAshes/AutoClicker/internal/utils"
	"github.com/rs/zerolog"
)

const (
	// DefaultUserAgent 兜底User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// builtinUserAgents 按浏览器类型分组的内置User-Agent
var builtinUserAgents = map[string][]string{
	"chrome": {
		DefaultUserAgent,
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	},
	"firefox": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.2; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	"safari": {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
	},
	"edge": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91",
	},
}

var browserFamilies = []string{"chrome", "firefox", "safari", "edge"}

// UserAgentManager 按平台提供随机User-Agent
// 实现 models.UserAgentProvider 接口
//
// 优先级: 命令行 > 配置中的平台列表 > 配置中的默认列表 > 内置列表
type UserAgentManager struct {
	// cli 命令行指定的User-Agent,非空时总是使用
	cli string

	// platforms 配置文件中按平台配置的列表
	platforms map[string][]string

	// defaults 配置文件中的默认列表
	defaults []string

	logger zerolog.Logger
}

// NewUserAgentManager 创建User-Agent管理器,配置中的非法值会被丢弃并记录警告
// cli非法时返回错误
func NewUserAgentManager(cfg UserAgentConfig, cli string, logger zerolog.Logger) (*UserAgentManager, error) {
	validator := utils.NewUserAgentValidator()

	if cli != "" {
		if err := validator.Validate("cli", cli); err != nil {
			return nil, err
		}
	}

	m := &UserAgentManager{
		cli:       cli,
		platforms: make(map[string][]string, len(cfg.Platforms)),
		logger:    logger,
	}
	for name, list := range cfg.Platforms {
		if valid := filterValid(validator, name, list, logger); len(valid) > 0 {
			m.platforms[normalizePlatform(name)] = valid
		}
	}
	m.defaults = filterValid(validator, "default", cfg.Default, logger)

	logger.Debug().
		Int("platforms", len(m.platforms)).
		Int("defaults", len(m.defaults)).
		Bool("cli", cli != "").
		Msg("User-Agent配置已加载")

	return m, nil
}

func filterValid(v *utils.UserAgentValidator, platform string, list []string, logger zerolog.Logger) []string {
	valid := make([]string, 0, len(list))
	for _, ua := range list {
		if err := v.Validate(platform, ua); err != nil {
			logger.Warn().Err(err).Msg("忽略无效的User-Agent")
			continue
		}
		valid = append(valid, ua)
	}
	return valid
}

// UserAgentFor 返回适合该平台的User-Agent
func (m *UserAgentManager) UserAgentFor(platform string) string {
	if m.cli != "" {
		return m.cli
	}
	if list := m.platforms[normalizePlatform(platform)]; len(list) > 0 {
		return list[rand.Intn(len(list))]
	}
	if len(m.defaults) > 0 {
		return m.defaults[rand.Intn(len(m.defaults))]
	}
	return RandomUserAgent()
}

// RandomUserAgent 随机选择浏览器类型后返回该类型的内置User-Agent
func RandomUserAgent() string {
	family := browserFamilies[rand.Intn(len(browserFamilies))]
	list := builtinUserAgents[family]
	if len(list) == 0 {
		return DefaultUserAgent
	}
	return list[rand.Intn(len(list))]
}
