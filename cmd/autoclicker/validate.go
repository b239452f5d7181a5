package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [目标...]",
	Short: "检查配置和目标格式,不启动浏览器",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := engines.DefaultRegistry()
		if err := ValidateFlags(appConfig.General.Engine, registry); err != nil {
			return err
		}

		platforms, err := loadPlatforms(platformsFile)
		if err != nil {
			return err
		}

		targets, err := collectTargets(args, "", articlesFile)
		if err != nil {
			return err
		}

		invalid, err := ValidateTargets(cmd.OutOrStdout(), registry, appConfig.General.Engine, platforms, targets)
		if err != nil {
			return err
		}
		if invalid > 0 {
			return fmt.Errorf("%d 个目标格式无效", invalid)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ 配置验证通过,共 %d 个目标\n", len(targets))
		return nil
	},
}

// ValidateFlags 验证命令行标志
func ValidateFlags(engine string, registry *engines.Registry) error {
	if !registry.Has(engine) {
		return fmt.Errorf("%w: %s (有效值: %v)", models.ErrUnknownPlatform, engine, registry.Names())
	}
	return nil
}

// ValidateTargets 用策略的URL生成规则检查每个目标,输出生成的URL
// 返回无效目标的数量
func ValidateTargets(w io.Writer, registry *engines.Registry, engine string, platforms []models.Platform, targets []string) (int, error) {
	strategy, err := registry.New(engine, engines.Deps{Platforms: platforms, Logger: logger})
	if err != nil {
		return 0, err
	}

	if t, ok := strategy.(interface{ Template() string }); ok && t.Template() != "" {
		fmt.Fprintf(w, "URL模板: %s\n", t.Template())
	}

	invalid := 0
	for _, target := range targets {
		url, err := strategy.GenerateURL(target)
		if err != nil {
			invalid++
			var ve *models.ValidationError
			if errors.As(err, &ve) {
				fmt.Fprintf(w, "❌ %s: %s\n", target, ve.Reason)
			} else {
				fmt.Fprintf(w, "❌ %s: %v\n", target, err)
			}
			continue
		}
		fmt.Fprintf(w, "✅ %s -> %s\n", target, url)
	}
	return invalid, nil
}
