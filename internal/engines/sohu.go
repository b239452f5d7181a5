package engines

import (
	"context"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

const (
	sohuDomain   = "sohu.com"
	sohuTemplate = "https://www.sohu.com/a/{article_id}"
)

// SohuEngine 搜狐号
// 标识为复合ID,例如 "702345678_121124365"
type SohuEngine struct {
	base
}

// NewSohuEngine 创建搜狐策略
func NewSohuEngine(deps Deps, template string) *SohuEngine {
	return &SohuEngine{base: newBase("sohu", sohuDomain, sohuTemplate, deps, template)}
}

// GenerateURL 直接代入模板
func (e *SohuEngine) GenerateURL(identifier string) (string, error) {
	if err := requireToken(e.name, identifier); err != nil {
		return "", err
	}
	return e.expand("", identifier), nil
}

// Click 当前URL在搜狐域名下且页面源码包含ID第一段视为成功
func (e *SohuEngine) Click(ctx context.Context, identifier string) models.TaskResult {
	return e.visit(ctx, identifier, e.name, e.name, e.GenerateURL, e.verify)
}

func (e *SohuEngine) verify(session *browser.Session, identifier string) error {
	current, err := session.CurrentURL()
	if err != nil {
		return err
	}
	if !strings.Contains(current, e.domain) {
		return &models.VerificationError{Platform: e.name, Identifier: identifier, CurrentURL: current, Diagnosis: "被重定向到其他站点"}
	}

	source, err := session.PageSource()
	if err != nil {
		return err
	}
	prefix, _, _ := strings.Cut(identifier, "_")
	if !strings.Contains(source, prefix) {
		return &models.VerificationError{Platform: e.name, Identifier: identifier, CurrentURL: current, Diagnosis: "页面内容不包含文章ID"}
	}
	return nil
}
