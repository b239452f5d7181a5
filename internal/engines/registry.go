package engines

import (
	"fmt"
	"sort"
	"sync"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
)

// Constructor 由依赖和URL模板构造策略,模板为空时使用平台默认值
type Constructor func(deps Deps, template string) Strategy

// Registry 平台名称到构造函数的映射
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry 注册了所有内置平台的注册表
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GenericPlatform, func(d Deps, t string) Strategy { return NewGenericEngine(d, t) })
	r.Register("csdn", func(d Deps, t string) Strategy { return NewCSDNEngine(d, t) })
	r.Register("xueqiu", func(d Deps, t string) Strategy { return NewXueqiuEngine(d, t) })
	r.Register("sohu", func(d Deps, t string) Strategy { return NewSohuEngine(d, t) })
	r.Register("netease", func(d Deps, t string) Strategy { return NewNeteaseEngine(d, t) })
	r.Register("toutiao", func(d Deps, t string) Strategy { return NewToutiaoEngine(d, t) })
	r.Register("smzdm", func(d Deps, t string) Strategy { return NewSmzdmEngine(d, t) })
	return r
}

// Register 注册或替换构造函数
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// Has 是否注册了该平台
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[name]
	return ok
}

// Names 已注册的平台名称(排序后)
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New 构造策略,URL模板取自平台表中同名条目的url_template
func (r *Registry) New(name string, deps Deps) (Strategy, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownPlatform, name)
	}
	return ctor(deps, templateFor(deps.Platforms, name)), nil
}

// BuiltinPlatforms 内置平台的默认描述,用于生成平台表模板
func BuiltinPlatforms() []models.Platform {
	return []models.Platform{
		{Name: "csdn", Domain: csdnDomain, URLTemplate: csdnTemplate},
		{Name: "xueqiu", Domain: xueqiuDomain, URLTemplate: xueqiuTemplate},
		{Name: "sohu", Domain: sohuDomain, URLTemplate: sohuTemplate},
		{Name: "netease", Domain: "163.com", URLTemplate: neteaseTemplate},
		{Name: "toutiao", Domain: "toutiao.com", URLTemplate: toutiaoTemplate},
		{Name: "smzdm", Domain: "smzdm.com", URLTemplate: smzdmTemplate},
	}
}

func templateFor(platforms []models.Platform, name string) string {
	for _, p := range platforms {
		if p.Name == name {
			return p.URLTemplate
		}
	}
	return ""
}
