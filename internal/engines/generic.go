package engines

import (
	"context"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

// GenericPlatform 未识别平台时的归属名称
const GenericPlatform = "generic"

// GenericEngine 通用策略,标识即为完整URL
// 访问前按平台表识别URL所属平台,并切换到该平台的User-Agent
type GenericEngine struct {
	base
}

// NewGenericEngine 创建通用策略,模板参数被忽略
func NewGenericEngine(deps Deps, _ string) *GenericEngine {
	return &GenericEngine{base: newBase(GenericPlatform, "", "", deps, "")}
}

// GenerateURL 只接受http://或https://开头的URL,原样返回
func (e *GenericEngine) GenerateURL(identifier string) (string, error) {
	if strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://") {
		return identifier, nil
	}
	return "", &models.ValidationError{
		Platform:   e.name,
		Identifier: identifier,
		Reason:     "URL必须以http://或https://开头",
	}
}

// Detect 识别URL所属平台,未识别返回generic
func (e *GenericEngine) Detect(rawURL string) string {
	if p, ok := DetectPlatform(e.deps.Platforms, rawURL); ok {
		return p.Name
	}
	return GenericPlatform
}

// Click 页面加载完成即视为成功
func (e *GenericEngine) Click(ctx context.Context, identifier string) models.TaskResult {
	platform := e.Detect(identifier)
	identity := ""
	if platform != GenericPlatform {
		e.logger.Debug().Str("detected", platform).Msg("识别到平台")
		identity = platform
	}
	return e.visit(ctx, identifier, platform, identity, e.GenerateURL, nil)
}
