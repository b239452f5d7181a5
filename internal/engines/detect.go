package engines

import (
	"net/url"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

// DetectPlatform 根据URL主机名识别平台
// 平台域名是小写主机名的子串即匹配;多个匹配时取域名最长者,
// 长度相同时取平台表中靠前者
func DetectPlatform(platforms []models.Platform, rawURL string) (models.Platform, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return models.Platform{}, false
	}
	host := strings.ToLower(u.Host)

	var (
		best  models.Platform
		found bool
	)
	for _, p := range platforms {
		domain := strings.ToLower(strings.TrimSpace(p.Domain))
		if domain == "" || !strings.Contains(host, domain) {
			continue
		}
		if !found || len(domain) > len(strings.TrimSpace(best.Domain)) {
			best = p
			found = true
		}
	}
	return best, found
}
