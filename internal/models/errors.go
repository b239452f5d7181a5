package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKind 任务失败类别
type ErrKind string

const (
	ErrKindNone         ErrKind = ""
	ErrKindSetup        ErrKind = "setup"        // 浏览器无法创建,终止整个运行
	ErrKindValidation   ErrKind = "validation"   // 标识格式不符合平台规则
	ErrKindNavigation   ErrKind = "navigation"   // 导航失败或页面加载超时
	ErrKindVerification ErrKind = "verification" // 页面已加载但缺少预期标记
	ErrKindTask         ErrKind = "task"         // 其他意外错误(含panic)
)

var (
	ErrInvalidIdentifier = errors.New("标识格式无效")
	ErrPageLoadTimeout   = errors.New("页面加载超时")
	ErrVerification      = errors.New("页面验证失败")
	ErrUnknownPlatform   = errors.New("未知平台")
)

// SetupError 浏览器初始化失败
// 唯一允许中止整个运行的错误类别
type SetupError struct {
	Stage string   // 失败阶段: launch, connect, page ...
	Cause error    // 底层错误
	Hints []string // 排查建议
}

// Error 实现error接口
func (e *SetupError) Error() string {
	return fmt.Sprintf("浏览器初始化失败 [%s]: %v", e.Stage, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *SetupError) Unwrap() error {
	return e.Cause
}

// DefaultSetupHints 浏览器初始化失败时的排查建议
var DefaultSetupHints = []string{
	"确认已安装Chrome/Chromium,或在browser.bin_path中指定可执行文件",
	"确认网络连接稳定(首次运行需要下载浏览器)",
	"确认防火墙没有阻止浏览器调试端口",
}

// ValidationError 目标标识验证错误
type ValidationError struct {
	Platform   string // 平台名称
	Identifier string // 原始标识
	Reason     string // 错误原因
	Expected   string // 期望格式(可选)
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s标识无效 [%s]: %s", e.Platform, e.Identifier, e.Reason)
	if e.Expected != "" {
		msg += fmt.Sprintf(" (期望格式: %s)", e.Expected)
	}
	return msg
}

// Unwrap 使errors.Is(err, ErrInvalidIdentifier)成立
func (e *ValidationError) Unwrap() error {
	return ErrInvalidIdentifier
}

// ConfigError 配置文件错误
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// VerificationError 页面验证失败的诊断信息
type VerificationError struct {
	Platform   string
	Identifier string
	CurrentURL string
	Diagnosis  string // 例如 "被重定向到首页" / "内容无法访问"
}

// Error 实现error接口
func (e *VerificationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s页面验证失败 [%s]: %s", e.Platform, e.Identifier, e.Diagnosis)
	if e.CurrentURL != "" {
		fmt.Fprintf(&b, " (当前URL: %s)", e.CurrentURL)
	}
	return b.String()
}

// Unwrap 使errors.Is(err, ErrVerification)成立
func (e *VerificationError) Unwrap() error {
	return ErrVerification
}
