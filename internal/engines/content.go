package engines

import (
	"context"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

// ContentEngine 以页面源码是否包含文章ID判断成功的平台
// 网易、头条、什么值得买共用该实现
type ContentEngine struct {
	base
}

const (
	neteaseTemplate = "https://www.163.com/dy/article/{article_id}.html"
	toutiaoTemplate = "https://www.toutiao.com/article/{article_id}/"
	smzdmTemplate   = "https://post.smzdm.com/p/{article_id}/"
)

// NewNeteaseEngine 网易号
func NewNeteaseEngine(deps Deps, template string) *ContentEngine {
	return &ContentEngine{base: newBase("netease", "163.com", neteaseTemplate, deps, template)}
}

// NewToutiaoEngine 今日头条
func NewToutiaoEngine(deps Deps, template string) *ContentEngine {
	return &ContentEngine{base: newBase("toutiao", "toutiao.com", toutiaoTemplate, deps, template)}
}

// NewSmzdmEngine 什么值得买
func NewSmzdmEngine(deps Deps, template string) *ContentEngine {
	return &ContentEngine{base: newBase("smzdm", "smzdm.com", smzdmTemplate, deps, template)}
}

// GenerateURL 直接代入模板
func (e *ContentEngine) GenerateURL(identifier string) (string, error) {
	if err := requireToken(e.name, identifier); err != nil {
		return "", err
	}
	return e.expand("", identifier), nil
}

// Click 页面源码包含文章ID视为成功
func (e *ContentEngine) Click(ctx context.Context, identifier string) models.TaskResult {
	return e.visit(ctx, identifier, e.name, e.name, e.GenerateURL, e.verify)
}

func (e *ContentEngine) verify(session *browser.Session, identifier string) error {
	source, err := session.PageSource()
	if err != nil {
		return err
	}
	if strings.Contains(source, identifier) {
		return nil
	}

	current, _ := session.CurrentURL()
	diagnosis := "内容无法访问"
	if isHomepage(current, e.domain) {
		diagnosis = "被重定向到首页,文章可能不存在"
	}
	return &models.VerificationError{Platform: e.name, Identifier: identifier, CurrentURL: current, Diagnosis: diagnosis}
}

// isHomepage 主机属于该域名,且路径为空、"/"或包含index
func isHomepage(raw, domain string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !strings.Contains(strings.ToLower(u.Host), domain) {
		return false
	}
	return u.Path == "" || u.Path == "/" || strings.Contains(strings.ToLower(u.Path), "index")
}
