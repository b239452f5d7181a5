package models

// Platform 平台描述,从platforms配置加载,运行期间只读
type Platform struct {
	Name        string `json:"name" mapstructure:"name" yaml:"name"`
	Domain      string `json:"domain" mapstructure:"domain" yaml:"domain"`
	URLTemplate string `json:"url_template,omitempty" mapstructure:"url_template" yaml:"url_template,omitempty"`
}

// UserAgentProvider 按平台提供User-Agent
type UserAgentProvider interface {
	UserAgentFor(platform string) string
}

// ProxyProvider 提供已验证的代理地址(host:port)
// 第二个返回值为false表示没有可用代理
type ProxyProvider interface {
	Get() (string, bool)
}
