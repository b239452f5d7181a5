// Package engines 各平台的点击策略
//
// 每个策略负责三件事: 由文章标识生成URL、校验标识格式、
// 导航后判断点击是否成功。策略从不panic,也不向调度器返回error,
// 所有失败都折算为失败的TaskResult。
package engines

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RecoveryAshes/AutoClicker/internal/browser"
	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/rs/zerolog"
)

// Strategy 平台策略
type Strategy interface {
	Name() string
	GenerateURL(identifier string) (string, error)
	Click(ctx context.Context, identifier string) models.TaskResult
}

// Deps 构造策略所需的依赖
type Deps struct {
	Session    *browser.Session
	Logger     zerolog.Logger
	UserAgents models.UserAgentProvider // 为nil时不切换User-Agent
	Platforms  []models.Platform        // 平台表,用于URL模板覆盖和通用策略的平台识别
}

// userAgentFor 返回平台的User-Agent,没有提供者时为空
func (d Deps) userAgentFor(platform string) string {
	if d.UserAgents == nil {
		return ""
	}
	return d.UserAgents.UserAgentFor(platform)
}

// verifyFunc 导航成功后判断页面状态
type verifyFunc func(session *browser.Session, identifier string) error

// base 各平台策略的公共流程
type base struct {
	name     string
	domain   string
	template string
	deps     Deps
	logger   zerolog.Logger
}

func newBase(name, domain, defaultTemplate string, deps Deps, template string) base {
	if template == "" {
		template = defaultTemplate
	}
	return base{
		name:     name,
		domain:   domain,
		template: template,
		deps:     deps,
		logger:   deps.Logger.With().Str("platform", name).Logger(),
	}
}

// Name 平台名称
func (b *base) Name() string {
	return b.name
}

// Template 实际使用的URL模板
func (b *base) Template() string {
	return b.template
}

// expand 将标识代入URL模板
func (b *base) expand(userID, articleID string) string {
	return strings.NewReplacer("{user_id}", userID, "{article_id}", articleID).Replace(b.template)
}

// visit 执行 生成URL -> 切换身份 -> 导航 -> 等待加载 -> 验证
// platform为写入结果的归属平台,identity为切换User-Agent所用的平台,为空时不切换
func (b *base) visit(ctx context.Context, identifier, platform, identity string,
	generate func(string) (string, error), verify verifyFunc) (result models.TaskResult) {
	start := time.Now()
	url := ""

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Str("target", identifier).Msgf("点击时发生panic: %v", r)
			result = models.Failed(identifier, url, platform, models.ErrKindTask, fmt.Errorf("点击panic: %v", r))
		}
		result.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		return models.Failed(identifier, "", platform, models.ErrKindTask, err)
	}

	generated, err := generate(identifier)
	if err != nil {
		b.logger.Error().Err(err).Str("target", identifier).Msg("生成URL失败")
		return models.Failed(identifier, "", platform, models.ErrKindValidation, err)
	}
	url = generated

	if b.deps.Session == nil {
		return models.Failed(identifier, url, platform, models.ErrKindTask, errors.New("浏览器会话未初始化"))
	}
	session := b.deps.Session

	if identity != "" {
		if ua := b.deps.userAgentFor(identity); ua != "" {
			if err := session.ApplyIdentity(ua); err != nil {
				b.logger.Warn().Err(err).Msg("切换User-Agent失败,继续使用当前身份")
			}
		}
	}

	b.logger.Info().Str("url", url).Msg("正在访问")
	if err := session.Navigate(url); err != nil {
		msg := "导航失败"
		if errors.Is(err, models.ErrPageLoadTimeout) {
			msg = "页面加载超时"
		}
		b.logger.Error().Err(err).Str("url", url).Msg(msg)
		return models.Failed(identifier, url, platform, models.ErrKindNavigation, err)
	}
	if !session.WaitLoaded() {
		err := fmt.Errorf("%w: %s", models.ErrPageLoadTimeout, url)
		b.logger.Error().Err(err).Msg("页面加载失败")
		return models.Failed(identifier, url, platform, models.ErrKindNavigation, err)
	}

	if verify != nil {
		if err := verify(session, identifier); err != nil {
			kind := models.ErrKindTask
			if errors.Is(err, models.ErrVerification) {
				kind = models.ErrKindVerification
			}
			b.logger.Warn().Err(err).Msg("点击未生效")
			return models.Failed(identifier, url, platform, kind, err)
		}
	}

	b.logger.Info().Str("url", url).Msg("点击成功")
	return models.Succeeded(identifier, url, platform)
}

// splitPair 拆分 "a:b" 形式的标识
func splitPair(platform, identifier, expected string) (string, string, error) {
	parts := strings.Split(identifier, ":")
	if len(parts) != 2 {
		return "", "", &models.ValidationError{
			Platform:   platform,
			Identifier: identifier,
			Reason:     "标识必须由一个冒号分隔为两部分",
			Expected:   expected,
		}
	}
	return parts[0], parts[1], nil
}

// requireToken 校验单段标识非空
func requireToken(platform, identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return &models.ValidationError{Platform: platform, Identifier: identifier, Reason: "标识为空"}
	}
	return nil
}
