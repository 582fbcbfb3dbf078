package steps_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/steps"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func testConfig(assets ...string) *domain.Config {
	return &domain.Config{
		Port:  8000,
		Paths: domain.Paths{Dist: "dist", Assets: assets},
	}
}

func TestClean_RemovesDist(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dist", "assets", "theme", "app.css"), "body{}")
	writeFile(t, filepath.Join(root, "src", "pages", "index.html"), "<p>keep</p>")

	out := &bytes.Buffer{}
	require.NoError(t, steps.NewClean(testConfig(), root).Run(t.Context(), out))

	assert.NoDirExists(t, filepath.Join(root, "dist"))
	assert.FileExists(t, filepath.Join(root, "src", "pages", "index.html"))
	assert.Equal(t, "removed dist\n", out.String())
}

func TestClean_MissingDistIsNoop(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, steps.NewClean(testConfig(), t.TempDir()).Run(t.Context(), out))
	assert.Empty(t, out.String())
}

func TestClean_RefusesUnsafeTargets(t *testing.T) {
	tests := []struct {
		name string
		dist string
	}{
		{name: "project root", dist: "."},
		{name: "parent", dist: ".."},
		{name: "outside", dist: "../elsewhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, "config.yml"), "PORT: 8000")

			cfg := testConfig()
			cfg.Paths.Dist = tt.dist

			err := steps.NewClean(cfg, root).Run(t.Context(), io.Discard)
			require.Error(t, err)
			assert.ErrorContains(t, err, domain.ErrUnsafeCleanTarget.Error())
			assert.FileExists(t, filepath.Join(root, "config.yml"))
		})
	}
}

func TestCopy_MirrorsGlobBase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "assets", "fonts", "icons.woff"), "woff")
	writeFile(t, filepath.Join(root, "src", "assets", "favicon.ico"), "ico")
	writeFile(t, filepath.Join(root, "src", "assets", "img", "logo.png"), "png")
	writeFile(t, filepath.Join(root, "src", "assets", "scss", "app.scss"), "scss")

	cfg := testConfig("src/assets/**/*", "!src/assets/{img,js,scss}/**/*")
	out := &bytes.Buffer{}
	require.NoError(t, steps.NewCopy(cfg, root).Run(t.Context(), out))

	data, err := os.ReadFile(filepath.Join(root, "dist", "assets", "fonts", "icons.woff"))
	require.NoError(t, err)
	assert.Equal(t, "woff", string(data))
	assert.FileExists(t, filepath.Join(root, "dist", "assets", "favicon.ico"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "assets", "img", "logo.png"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "assets", "scss", "app.scss"))
	assert.Equal(t, "copied 2 files\n", out.String())
}

func TestCopy_NoPatterns(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, steps.NewCopy(testConfig(), root).Run(t.Context(), io.Discard))
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestCopy_CanceledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "assets", "a.txt"), "a")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := steps.NewCopy(testConfig("src/assets/**/*"), root).Run(ctx, io.Discard)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_DispatchesByTaskName(t *testing.T) {
	ctrl := gomock.NewController(t)
	pages := mocks.NewMockStep(ctrl)
	out := &bytes.Buffer{}

	pages.EXPECT().Run(gomock.Any(), out).Return(nil)

	exec := steps.NewExecutor(&ports.StepSet{Steps: map[string]ports.Step{domain.TaskPages: pages}})
	require.NoError(t, exec.Execute(t.Context(), &domain.Task{Name: domain.TaskPages}, out))
}

func TestExecutor_PropagatesStepError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sass := mocks.NewMockStep(ctrl)
	stepErr := errors.New("expected \";\"")

	sass.EXPECT().Run(gomock.Any(), gomock.Any()).Return(stepErr)

	exec := steps.NewExecutor(&ports.StepSet{Steps: map[string]ports.Step{domain.TaskSass: sass}})
	err := exec.Execute(t.Context(), &domain.Task{Name: domain.TaskSass}, io.Discard)
	require.ErrorIs(t, err, stepErr)
}

func TestExecutor_UnknownTask(t *testing.T) {
	exec := steps.NewExecutor(&ports.StepSet{Steps: map[string]ports.Step{}})
	err := exec.Execute(t.Context(), &domain.Task{Name: "deploy"}, io.Discard)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrStepNotFound.Error())
}
