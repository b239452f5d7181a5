package engines

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

const (
	xueqiuDomain   = "xueqiu.com"
	xueqiuTemplate = "https://xueqiu.com/{user_id}/{article_id}"
)

var digitsPattern = regexp.MustCompile(`^\d+$`)

// XueqiuEngine 雪球
// 标识格式 "user_id:article_id",两部分都必须是纯数字
type XueqiuEngine struct {
	base
}

// NewXueqiuEngine 创建雪球策略
func NewXueqiuEngine(deps Deps, template string) *XueqiuEngine {
	return &XueqiuEngine{base: newBase("xueqiu", xueqiuDomain, xueqiuTemplate, deps, template)}
}

// GenerateURL 由 "user_id:article_id" 生成URL
func (e *XueqiuEngine) GenerateURL(identifier string) (string, error) {
	userID, articleID, err := splitPair(e.name, identifier, "digits:digits")
	if err != nil {
		return "", err
	}
	if !digitsPattern.MatchString(userID) || !digitsPattern.MatchString(articleID) {
		return "", &models.ValidationError{
			Platform:   e.name,
			Identifier: identifier,
			Reason:     "用户ID和文章ID必须是数字",
			Expected:   "digits:digits",
		}
	}
	return e.expand(userID, articleID), nil
}

// Click 访问文章
//
// 雪球的URL形态不稳定: 当前URL不含两个ID,但仍在雪球域名下
// 且不是首页时,同样视为成功。
func (e *XueqiuEngine) Click(ctx context.Context, identifier string) models.TaskResult {
	return e.visit(ctx, identifier, e.name, e.name, e.GenerateURL, e.verify)
}

func (e *XueqiuEngine) verify(session *browser.Session, identifier string) error {
	userID, articleID, _ := splitPair(e.name, identifier, "")
	current, err := session.CurrentURL()
	if err != nil {
		return err
	}

	if strings.Contains(current, userID) && strings.Contains(current, articleID) {
		return nil
	}

	if !strings.Contains(current, e.domain) {
		return &models.VerificationError{Platform: e.name, Identifier: identifier, CurrentURL: current, Diagnosis: "被重定向到其他站点"}
	}
	if IsXueqiuHomePath(current) {
		return &models.VerificationError{Platform: e.name, Identifier: identifier, CurrentURL: current, Diagnosis: "被重定向到首页,文章可能不存在"}
	}

	e.logger.Warn().Str("url", current).Msg("页面已加载但URL与预期不符,按成功处理")
	return nil
}

// IsXueqiuHomePath 判断URL是否为首页/索引页
// 路径为空或"/",或任一路径段以index或home开头
func IsXueqiuHomePath(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return true
	}
	for _, seg := range strings.Split(path, "/") {
		seg = strings.ToLower(seg)
		if strings.HasPrefix(seg, "index") || strings.HasPrefix(seg, "home") {
			return true
		}
	}
	return false
}
