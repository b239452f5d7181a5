package engines

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

const (
	csdnDomain   = "csdn.net"
	csdnTemplate = "https://blog.csdn.net/{user_id}/article/details/{article_id}"
)

var (
	csdnUserIDPattern    = regexp.MustCompile(`^\d+_\d+$`)
	csdnArticleIDPattern = regexp.MustCompile(`^\d+$`)
)

// CSDNEngine CSDN博客
// 标识格式 "user_id:article_id",例如 "2501_94652164:155947200"
type CSDNEngine struct {
	base
}

// NewCSDNEngine 创建CSDN策略,template为空时使用默认模板
func NewCSDNEngine(deps Deps, template string) *CSDNEngine {
	return &CSDNEngine{base: newBase("csdn", csdnDomain, csdnTemplate, deps, template)}
}

// GenerateURL 由 "user_id:article_id" 生成文章URL
func (e *CSDNEngine) GenerateURL(identifier string) (string, error) {
	userID, articleID, err := splitPair(e.name, identifier, "user_id:article_id")
	if err != nil {
		return "", err
	}
	return e.GenerateURLFromPair(userID, articleID)
}

// GenerateURLFromPair 由用户ID和文章ID生成文章URL
func (e *CSDNEngine) GenerateURLFromPair(userID, articleID string) (string, error) {
	identifier := userID + ":" + articleID
	if !csdnUserIDPattern.MatchString(userID) {
		return "", &models.ValidationError{
			Platform:   e.name,
			Identifier: identifier,
			Reason:     fmt.Sprintf("用户ID格式无效: %s", userID),
			Expected:   `^\d+_\d+$`,
		}
	}
	if !csdnArticleIDPattern.MatchString(articleID) {
		return "", &models.ValidationError{
			Platform:   e.name,
			Identifier: identifier,
			Reason:     fmt.Sprintf("文章ID格式无效: %s", articleID),
			Expected:   `^\d+$`,
		}
	}
	return e.expand(userID, articleID), nil
}

// Click 访问文章,当前URL同时包含csdn.net和文章ID视为成功
func (e *CSDNEngine) Click(ctx context.Context, identifier string) models.TaskResult {
	return e.visit(ctx, identifier, e.name, e.name, e.GenerateURL, e.verify)
}

func (e *CSDNEngine) verify(session *browser.Session, identifier string) error {
	_, articleID, _ := splitPair(e.name, identifier, "")
	current, err := session.CurrentURL()
	if err != nil {
		return err
	}
	if strings.Contains(current, e.domain) && strings.Contains(current, articleID) {
		return nil
	}
	return &models.VerificationError{
		Platform:   e.name,
		Identifier: identifier,
		CurrentURL: current,
		Diagnosis:  "当前URL不包含文章ID,可能被重定向",
	}
}
