package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestIgnoreFilter(t *testing.T, rootDir string) *IgnoreFilter {
	t.Helper()
	filter, err := NewIgnoreFilter(rootDir, IgnoreOptions{
		GitIgnoreFileName: ".gitignore",
		IgnoreFileName:    ".dafcignore",
		ExtraIgnoredFiles: []string{"response.md"},
	})
	require.NoError(t, err)
	return filter
}

func TestIgnoreFilter_DefaultLayers(t *testing.T) {
	filter := newTestIgnoreFilter(t, t.TempDir())

	assert.False(t, filter.IsAllowed("node_modules/"))
	assert.False(t, filter.IsAllowed("node_modules/x.ts"))
	assert.False(t, filter.IsAllowed("packages/web/node_modules/"))
	assert.False(t, filter.IsAllowed(".git/"))
	assert.False(t, filter.IsAllowed("b.log"))
	assert.False(t, filter.IsAllowed("logs/server.log"))
	assert.False(t, filter.IsAllowed(".DS_Store"))
	assert.False(t, filter.IsAllowed("response.md"))
	assert.False(t, filter.IsAllowed(".env"))

	assert.True(t, filter.IsAllowed("a.ts"))
	assert.True(t, filter.IsAllowed(".gitignore"))
	assert.True(t, filter.IsAllowed("src/"))
	assert.True(t, filter.IsAllowed("src/builder.go"))
	assert.True(t, filter.IsAllowed("docs/response.md.txt"))
}

func TestIgnoreFilter_GitignoreSemantics(t *testing.T) {
	rootDir := t.TempDir()
	gitignore := "# generated\n/generated\ntmp/\n*.md\n!README.md\n"
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".gitignore"), []byte(gitignore), 0644))

	filter := newTestIgnoreFilter(t, rootDir)

	assert.False(t, filter.IsAllowed("generated/"))
	assert.False(t, filter.IsAllowed("generated/api.go"))
	assert.True(t, filter.IsAllowed("pkg/generated/api.go"), "leading slash anchors to the root")

	assert.False(t, filter.IsAllowed("tmp/"))
	assert.False(t, filter.IsAllowed("src/tmp/cache.json"))

	assert.False(t, filter.IsAllowed("CHANGELOG.md"))
	assert.True(t, filter.IsAllowed("README.md"), "negation applies inside the same layer")
}

func TestIgnoreFilter_LaterLayerCannotReinclude(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".gitignore"), []byte("secrets.json\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".dafcignore"), []byte("!secrets.json\n!b.log\nfixtures/\n"), 0644))

	filter := newTestIgnoreFilter(t, rootDir)

	assert.False(t, filter.IsAllowed("secrets.json"))
	assert.False(t, filter.IsAllowed("b.log"))
	assert.False(t, filter.IsAllowed("fixtures/"))
	assert.True(t, filter.IsAllowed("main.go"))
}

func TestIgnoreFilter_MissingIgnoreFilesAreEmpty(t *testing.T) {
	filter, err := NewIgnoreFilter(t.TempDir(), IgnoreOptions{
		GitIgnoreFileName: ".gitignore",
		IgnoreFileName:    ".does-not-exist",
	})
	require.NoError(t, err)
	assert.Len(t, filter.layers, 4)
	assert.True(t, filter.IsAllowed("main.go"))
}

func TestIgnoreFilter_UnevaluablePathIsExcluded(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	filter, err := NewIgnoreFilter(t.TempDir(), IgnoreOptions{Logger: zap.New(core)})
	require.NoError(t, err)

	assert.False(t, filter.IsAllowed("../outside.go"))
	assert.False(t, filter.IsAllowed(""))
	assert.Equal(t, 2, logs.Len())
}

func TestIgnoreFilter_NormalizesLeadingSlash(t *testing.T) {
	filter := newTestIgnoreFilter(t, t.TempDir())
	assert.False(t, filter.IsAllowed("/node_modules/"))
	assert.True(t, filter.IsAllowed("/src/app.ts"))
}

func TestIgnoreFilter_SingleCharacterWildcard(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".gitignore"), []byte("secret?.ts\n"), 0644))

	filter := newTestIgnoreFilter(t, rootDir)

	assert.False(t, filter.IsAllowed("secret1.ts"))
	assert.False(t, filter.IsAllowed("src/secretA.ts"))
	assert.True(t, filter.IsAllowed("secret.ts"))
	assert.True(t, filter.IsAllowed("secret12.ts"))
}

func TestIgnoreFilter_MiddleSlashAnchorsToRoot(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".gitignore"), []byte("doc/frotz\n"), 0644))

	filter := newTestIgnoreFilter(t, rootDir)

	assert.False(t, filter.IsAllowed("doc/frotz"))
	assert.False(t, filter.IsAllowed("doc/frotz/"))
	assert.True(t, filter.IsAllowed("a/doc/frotz"))
}

func TestIgnoreFilter_CharacterClasses(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".dafcignore"), []byte("fixture[0-9].json\nv[ab].go\n"), 0644))

	filter := newTestIgnoreFilter(t, rootDir)

	assert.False(t, filter.IsAllowed("fixture3.json"))
	assert.False(t, filter.IsAllowed("testdata/fixture7.json"))
	assert.True(t, filter.IsAllowed("fixtureX.json"))
	assert.False(t, filter.IsAllowed("va.go"))
	assert.False(t, filter.IsAllowed("vb.go"))
	assert.True(t, filter.IsAllowed("vc.go"))
}

func TestIgnoreFilter_DoubleStar(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, ".gitignore"), []byte("**/mocks/*.go\n"), 0644))

	filter := newTestIgnoreFilter(t, rootDir)

	assert.False(t, filter.IsAllowed("mocks/db.go"))
	assert.False(t, filter.IsAllowed("internal/store/mocks/db.go"))
	assert.True(t, filter.IsAllowed("internal/store/db.go"))
}
