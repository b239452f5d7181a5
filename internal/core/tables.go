package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/config"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/spf13/viper"
)

// ErrNoTargets 没有可执行的目标
var ErrNoTargets = errors.New("没有点击目标")

// DefaultTablePath 配置表默认路径,优先json,其次yaml/yml
func DefaultTablePath(name string) string {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(DefaultConfigDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(DefaultConfigDir, name+".json")
}

// readTable 用viper读取单个配置表
func readTable(path string) (*viper.Viper, error) {
	if err := config.ValidateFileSize(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}
	return v, nil
}

// LoadPlatforms 加载平台表 {"platforms": [{"name", "domain", "url_template"}]}
// 文件不存在时返回空表,错误满足errors.Is(err, os.ErrNotExist)
func LoadPlatforms(path string) ([]models.Platform, error) {
	if _, err := os.Stat(path); err != nil {
		return []models.Platform{}, &models.ConfigError{FilePath: path, Cause: err}
	}

	v, err := readTable(path)
	if err != nil {
		return nil, err
	}

	var table struct {
		Platforms []models.Platform `mapstructure:"platforms"`
	}
	if err := v.Unmarshal(&table); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("解析平台表失败: %w", err)}
	}

	platforms := make([]models.Platform, 0, len(table.Platforms))
	for i, p := range table.Platforms {
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		p.Domain = strings.ToLower(strings.TrimSpace(p.Domain))
		if p.Name == "" || p.Domain == "" {
			return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("第 %d 个平台缺少name或domain", i+1)}
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}

// LoadTargets 加载目标表 {"clicks": {"values": [...]}}
func LoadTargets(path string) ([]string, error) {
	v, err := readTable(path)
	if err != nil {
		return nil, err
	}

	raw := v.GetStringSlice("clicks.values")
	targets := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	return targets, nil
}
