// Package config 生成和检查配置表文件
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024

	ConfigFile    = "config.yaml"
	PlatformsFile = "platforms.yaml"
	ArticlesFile  = "articles.yaml"
)

//go:embed config_template.yaml
var defaultConfigTemplate string

// ConfigTemplate 带注释的主配置模板
func ConfigTemplate() string {
	return defaultConfigTemplate
}

type platformTable struct {
	Platforms []models.Platform `yaml:"platforms"`
}

type articleTable struct {
	Clicks struct {
		Values []string `yaml:"values"`
	} `yaml:"clicks"`
}

// PlatformsTemplate 平台表模板
func PlatformsTemplate(platforms []models.Platform) ([]byte, error) {
	return yaml.Marshal(platformTable{Platforms: platforms})
}

// ArticlesTemplate 目标表模板
func ArticlesTemplate(values []string) ([]byte, error) {
	var table articleTable
	table.Clicks.Values = values
	if table.Clicks.Values == nil {
		table.Clicks.Values = []string{}
	}
	return yaml.Marshal(table)
}

// EnsureFile 文件不存在时写入content,force为true时总是覆盖
// 返回是否写入了文件
func EnsureFile(path string, content []byte, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, fmt.Errorf("无法生成配置文件 [%s]: %w", path, err)
	}
	return true, nil
}

// WriteTemplates 在dir下生成三个配置表,已存在的文件默认跳过
// 返回实际写入的文件
func WriteTemplates(dir string, platforms []models.Platform, examples []string, force bool) ([]string, error) {
	platformsYAML, err := PlatformsTemplate(platforms)
	if err != nil {
		return nil, fmt.Errorf("生成平台表失败: %w", err)
	}
	articlesYAML, err := ArticlesTemplate(examples)
	if err != nil {
		return nil, fmt.Errorf("生成目标表失败: %w", err)
	}

	files := []struct {
		name    string
		content []byte
	}{
		{ConfigFile, []byte(defaultConfigTemplate)},
		{PlatformsFile, platformsYAML},
		{ArticlesFile, articlesYAML},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		ok, err := EnsureFile(path, f.content, force)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, path)
		}
	}
	return written, nil
}

// ValidateFileSize 验证配置文件大小是否在限制内
func ValidateFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &models.ConfigError{FilePath: path, Cause: err}
	}

	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: path,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}

	return nil
}
