package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/AutoClicker/internal/engines"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlatforms(t *testing.T) {
	path := writeFile(t, t.TempDir(), "platforms.json", `{
  "platforms": [
    {"name": "csdn", "domain": "CSDN.net", "url_template": "https://blog.csdn.net/{user_id}/article/details/{article_id}"},
    {"name": " netease ", "domain": "163.com"}
  ]
}`)

	platforms, err := LoadPlatforms(path)
	require.NoError(t, err)
	require.Len(t, platforms, 2)

	assert.Equal(t, "csdn", platforms[0].Name)
	assert.Equal(t, "csdn.net", platforms[0].Domain)
	assert.Contains(t, platforms[0].URLTemplate, "{article_id}")
	assert.Equal(t, "netease", platforms[1].Name)
	assert.Empty(t, platforms[1].URLTemplate)
}

func TestLoadPlatforms_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "platforms.yaml", `
platforms:
  - name: sohu
    domain: sohu.com
`)
	platforms, err := LoadPlatforms(path)
	require.NoError(t, err)
	require.Len(t, platforms, 1)
	assert.Equal(t, "sohu", platforms[0].Name)
}

func TestLoadPlatforms_Missing(t *testing.T) {
	platforms, err := LoadPlatforms(filepath.Join(t.TempDir(), "platforms.json"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NotNil(t, platforms)
	assert.Empty(t, platforms)
}

func TestLoadPlatforms_MissingDomain(t *testing.T) {
	path := writeFile(t, t.TempDir(), "platforms.json", `{"platforms": [{"name": "csdn"}]}`)
	_, err := LoadPlatforms(path)
	assert.Error(t, err)
}

func TestLoadPlatforms_MixedCaseName(t *testing.T) {
	dir := t.TempDir()
	const ua = "Mozilla/5.0 (X11; Linux x86_64) CSDNReader/1.0"
	cfgPath := writeFile(t, dir, "config.json", `{"user_agents": {"platforms": {"CSDN": ["`+ua+`"]}}}`)
	tablePath := writeFile(t, dir, "platforms.json", `{"platforms": [{"name": "CSDN", "domain": "csdn.net"}]}`)

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	platforms, err := LoadPlatforms(tablePath)
	require.NoError(t, err)
	require.Len(t, platforms, 1)
	assert.Equal(t, "csdn", platforms[0].Name)

	detected, ok := engines.DetectPlatform(platforms, "https://blog.csdn.net/a_1/article/details/2")
	require.True(t, ok)

	m, err := NewUserAgentManager(cfg.UserAgents, "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, ua, m.UserAgentFor(detected.Name), "平台表中的大写名称应命中配置的User-Agent")
	assert.Equal(t, ua, m.UserAgentFor("Csdn"))
}

func TestLoadTargets(t *testing.T) {
	path := writeFile(t, t.TempDir(), "articles.json", `{
  "clicks": {"values": ["2501_94652164:155947200", "  ", " 1_2:3 "]}
}`)

	targets, err := LoadTargets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2501_94652164:155947200", "1_2:3"}, targets)
}

func TestLoadTargets_Missing(t *testing.T) {
	_, err := LoadTargets(filepath.Join(t.TempDir(), "articles.json"))
	assert.Error(t, err)
}

func TestDefaultTablePath(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Equal(t, filepath.Join("config", "articles.json"), DefaultTablePath("articles"))

	require.NoError(t, os.MkdirAll("config", 0o755))
	writeFile(t, "config", "articles.yaml", "clicks:\n  values: []\n")
	assert.Equal(t, filepath.Join("config", "articles.yaml"), DefaultTablePath("articles"))

	writeFile(t, "config", "articles.json", `{"clicks": {"values": []}}`)
	assert.Equal(t, filepath.Join("config", "articles.json"), DefaultTablePath("articles"))
}
