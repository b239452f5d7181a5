package utils

import (
	"fmt"
	"regexp"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

const (
	// MaxUserAgentLength User-Agent最大长度
	MaxUserAgentLength = 512
)

// UserAgentValidator 校验User-Agent字符串
type UserAgentValidator struct {
	// valueRegex 可打印ASCII + 空格
	valueRegex *regexp.Regexp

	maxLength int
}

// NewUserAgentValidator 创建验证器
func NewUserAgentValidator() *UserAgentValidator {
	return &UserAgentValidator{
		valueRegex: regexp.MustCompile(`^[\x20-\x7E]+$`),
		maxLength:  MaxUserAgentLength,
	}
}

// Validate 校验单个User-Agent,platform仅用于错误信息
func (v *UserAgentValidator) Validate(platform, ua string) error {
	if ua == "" {
		return &models.ValidationError{
			Platform:   platform,
			Identifier: ua,
			Reason:     "User-Agent不能为空",
		}
	}

	if len(ua) > v.maxLength {
		return &models.ValidationError{
			Platform:   platform,
			Identifier: Truncate(ua, 40),
			Reason:     fmt.Sprintf("User-Agent过长: %d 字节 (最大 %d)", len(ua), v.maxLength),
		}
	}

	if !v.valueRegex.MatchString(ua) {
		return &models.ValidationError{
			Platform:   platform,
			Identifier: Truncate(ua, 40),
			Reason:     "User-Agent包含非法字符 (仅允许可打印ASCII字符)",
		}
	}

	return nil
}

// ValidateAll 校验列表,返回第一个错误
func (v *UserAgentValidator) ValidateAll(platform string, uas []string) error {
	for _, ua := range uas {
		if err := v.Validate(platform, ua); err != nil {
			return err
		}
	}
	return nil
}
