package toolchain_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/devserver"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/toolchain"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newConfig() *domain.Config {
	return &domain.Config{
		Port: 8000,
		Paths: domain.Paths{
			Dist:   "dist",
			Assets: []string{"src/assets/**/*", "!src/assets/{img,js,theme}/**/*"},
		},
		Browsers:      domain.DefaultBrowsers,
		Compatibility: domain.DefaultCompatibility,
	}
}

func newToolchain(t *testing.T, root string) *toolchain.Toolchain {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return toolchain.New(root, fs.NewWalker(), logger)
}

func TestToolchain_StepsBindsEveryLeafTask(t *testing.T) {
	tc := newToolchain(t, t.TempDir())

	set, err := tc.Steps(newConfig(), nil)
	require.NoError(t, err)

	for _, name := range []string{
		domain.TaskClean,
		domain.TaskCopy,
		domain.TaskPages,
		domain.TaskImages,
		domain.TaskSass,
	} {
		assert.Contains(t, set.Steps, name)
	}
	assert.NotContains(t, set.Steps, domain.TaskBuild)
	require.NotNil(t, set.Pages)
	assert.Same(t, set.Steps[domain.TaskPages], set.Pages)
}

func TestToolchain_StepsRejectsBadAssetGlob(t *testing.T) {
	tc := newToolchain(t, t.TempDir())
	cfg := newConfig()
	cfg.Paths.Assets = []string{"src/assets/[*"}

	_, err := tc.Steps(cfg, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrGlobFailed.Error())
}

func TestToolchain_ExecutorRunsBoundStep(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "stale.html"), []byte("old"), 0o600))

	tc := newToolchain(t, root)
	set, err := tc.Steps(newConfig(), nil)
	require.NoError(t, err)

	task := &domain.Task{Name: domain.TaskClean}
	require.NoError(t, tc.Executor(set).Execute(context.Background(), task, new(bytes.Buffer)))

	_, err = os.Stat(filepath.Join(root, "dist"))
	assert.True(t, os.IsNotExist(err))
}

func TestToolchain_RebuildIsIdempotent(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string, perm os.FileMode) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), perm))
	}
	write("src/layouts/default.html", "<html><body>{{> body}}</body></html>\n", 0o600)
	write("src/pages/index.html", "---\ntitle: Home\n---\n<h1>{{title}}</h1>\n", 0o600)
	write("src/pages/blog/post.html", "<p>post</p>\n", 0o600)
	write("src/assets/fonts/site.woff", "font", 0o600)
	write("src/assets/img/logo.png", "png", 0o600)
	write("src/assets/theme/app.scss", ".a {\n  color: red;\n  user-select: none;\n}\n", 0o600)
	write("bin/sass", "#!/bin/sh\nfor last; do :; done\ncat \"$last\"\n", 0o700)

	cfg := newConfig()
	cfg.Sass.Binary = filepath.Join(root, "bin", "sass")
	cfg.Tailwind = domain.Tailwind{Config: domain.DefaultTailwindConfig, Binary: domain.DefaultTailwindBinary}

	tc := newToolchain(t, root)
	hasher := fs.NewHasher(fs.NewWalker())
	dist := cfg.DistDir(root)

	build := func() string {
		set, err := tc.Steps(cfg, nil)
		require.NoError(t, err)
		exec := tc.Executor(set)
		for _, name := range []string{
			domain.TaskClean,
			domain.TaskCopy,
			domain.TaskPages,
			domain.TaskImages,
			domain.TaskSass,
		} {
			require.NoError(t, exec.Execute(context.Background(), &domain.Task{Name: name}, new(bytes.Buffer)), name)
		}
		sum, err := hasher.Fingerprint(dist)
		require.NoError(t, err)
		return sum
	}

	first := build()
	require.FileExists(t, domain.StylesheetOutput(dist))
	require.FileExists(t, filepath.Join(dist, "blog", "post.html"))
	assert.Equal(t, first, build())
}

func TestToolchain_DevServerBindsConfig(t *testing.T) {
	server := newToolchain(t, t.TempDir()).DevServer(newConfig())
	assert.IsType(t, &devserver.Server{}, server)
}

func TestToolchain_Watcher(t *testing.T) {
	w, err := newToolchain(t, t.TempDir()).Watcher()
	require.NoError(t, err)
	require.NoError(t, w.Stop())
}
