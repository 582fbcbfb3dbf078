package scheduler_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type schedulerTestMocks struct {
	executor *mocks.MockExecutor
	tracer   *mocks.MockTracer
}

// setupSchedulerTest creates a scheduler and common mocks.
func setupSchedulerTest(t *testing.T) (*scheduler.Scheduler, schedulerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := schedulerTestMocks{
		executor: mocks.NewMockExecutor(ctrl),
		tracer:   mocks.NewMockTracer(ctrl),
	}

	mockSpan := mocks.NewMockSpan(ctrl)
	mockSpan.EXPECT().End().AnyTimes()
	mockSpan.EXPECT().RecordError(gomock.Any()).AnyTimes()
	mockSpan.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	mockSpan.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		return len(p), nil
	}).AnyTimes()

	// Start has variadic signature: Start(ctx, name, ...opts).
	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, mockSpan
		},
	).AnyTimes()
	m.tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	return scheduler.NewScheduler(m.executor, m.tracer), m
}

// createGraphHelper constructs a graph from a simple map of dependencies.
// deps format: "target" -> ["dep1", "dep2"].
func createGraphHelper(t *testing.T, deps map[string][]string) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot("/tmp/root")

	for name, myDeps := range deps {
		require.NoError(t, g.AddTask(&domain.Task{Name: name, Dependencies: myDeps}))
	}

	// Add any dependencies that weren't explicitly keys in the map.
	for _, myDeps := range deps {
		for _, d := range myDeps {
			if _, ok := g.GetTask(d); !ok {
				require.NoError(t, g.AddTask(&domain.Task{Name: d}))
			}
		}
	}

	require.NoError(t, g.Validate())
	return g
}

// taskMatcher implements gomock.Matcher for domain.Task.
type taskMatcher struct {
	name string
}

func (m taskMatcher) Matches(x any) bool {
	t, ok := x.(*domain.Task)
	if !ok {
		return false
	}
	return t.Name == m.name
}

func (m taskMatcher) String() string {
	return "task name is " + m.name
}

func matchTask(name string) gomock.Matcher {
	return taskMatcher{name: name}
}

func TestScheduler_DiamondDependency(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Graph: A -> B, A -> C, B -> D, C -> D
		// Execution Order should be: D -> (B, C parallel) -> A.
		g := createGraphHelper(t, map[string][]string{
			"A": {"B", "C"},
			"B": {"D"},
			"C": {"D"},
		})
		s, m := setupSchedulerTest(t)

		dCall := m.executor.EXPECT().Execute(gomock.Any(), matchTask("D"), gomock.Any()).Return(nil).Times(1)
		bCall := m.executor.EXPECT().Execute(gomock.Any(), matchTask("B"), gomock.Any()).Return(nil).Times(1).After(dCall)
		cCall := m.executor.EXPECT().Execute(gomock.Any(), matchTask("C"), gomock.Any()).Return(nil).Times(1).After(dCall)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("A"), gomock.Any()).Return(nil).Times(1).After(bCall).After(cCall)

		err := s.Run(context.Background(), g, []string{"all"}, scheduler.RunOptions{Parallelism: 4})
		require.NoError(t, err)

		status, ok := s.Status("A")
		require.True(t, ok)
		assert.Equal(t, scheduler.StatusCompleted, status)
	})
}

func TestScheduler_ParallelSiblingsOverlap(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraphHelper(t, map[string][]string{
			"join": {"left", "right"},
		})
		s, m := setupSchedulerTest(t)

		var mu sync.Mutex
		running, peak := 0, 0
		work := func(context.Context, *domain.Task, io.Writer) error {
			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()

			time.Sleep(time.Second)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("left"), gomock.Any()).DoAndReturn(work)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("right"), gomock.Any()).DoAndReturn(work)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("join"), gomock.Any()).Return(nil)

		require.NoError(t, s.Run(context.Background(), g, []string{"join"}, scheduler.RunOptions{Parallelism: 4}))
		assert.Equal(t, 2, peak)
	})
}

func TestScheduler_FailurePropagation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Graph: A -> B. B fails. A should not run.
		g := createGraphHelper(t, map[string][]string{
			"A": {"B"},
		})
		s, m := setupSchedulerTest(t)

		failureErr := errors.New("boom")
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("B"), gomock.Any()).Return(failureErr).Times(1)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("A"), gomock.Any()).Times(0)

		err := s.Run(context.Background(), g, []string{"all"}, scheduler.RunOptions{Parallelism: 4})
		require.Error(t, err)
		require.ErrorIs(t, err, failureErr)
		require.ErrorContains(t, err, domain.ErrTaskExecutionFailed.Error())

		status, _ := s.Status("B")
		assert.Equal(t, scheduler.StatusFailed, status)
		status, _ = s.Status("A")
		assert.Equal(t, scheduler.StatusPending, status)
	})
}

func TestScheduler_FailureCancelsRunningSiblings(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraphHelper(t, map[string][]string{
			"join": {"slow", "broken"},
		})
		s, m := setupSchedulerTest(t)

		m.executor.EXPECT().Execute(gomock.Any(), matchTask("slow"), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ *domain.Task, _ io.Writer) error {
				<-ctx.Done()
				return ctx.Err()
			},
		)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("broken"), gomock.Any()).DoAndReturn(
			func(context.Context, *domain.Task, io.Writer) error {
				time.Sleep(10 * time.Millisecond)
				return errors.New("syntax error")
			},
		)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask("join"), gomock.Any()).Times(0)

		err := s.Run(context.Background(), g, []string{"join"}, scheduler.RunOptions{Parallelism: 4})
		require.Error(t, err)
		assert.ErrorContains(t, err, "syntax error")
		assert.NotErrorIs(t, err, context.Canceled)

		status, _ := s.Status("slow")
		assert.Equal(t, scheduler.StatusCanceled, status)
	})
}

func TestScheduler_Cancellation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraphHelper(t, map[string][]string{
			"A": {},
		})
		s, m := setupSchedulerTest(t)

		m.executor.EXPECT().Execute(gomock.Any(), matchTask("A"), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ *domain.Task, _ io.Writer) error {
				<-ctx.Done()
				return ctx.Err()
			},
		).Times(1)

		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Run(ctx, g, []string{"all"}, scheduler.RunOptions{Parallelism: 4})
		}()

		synctest.Wait()
		cancel()
		synctest.Wait()

		err := <-errCh
		require.Error(t, err)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestScheduler_SkipDependencies(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g, err := domain.NewSiteGraph("/tmp/root")
		require.NoError(t, err)
		s, m := setupSchedulerTest(t)

		pages := m.executor.EXPECT().Execute(gomock.Any(), matchTask(domain.TaskPages), gomock.Any()).Return(nil)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask(domain.TaskSass), gomock.Any()).Return(nil).After(pages)

		err = s.Run(context.Background(), g, []string{domain.TaskSass, domain.TaskPages}, scheduler.RunOptions{
			Parallelism:      4,
			SkipDependencies: true,
		})
		require.NoError(t, err)

		_, ok := s.Status(domain.TaskClean)
		assert.False(t, ok)
	})
}

func TestScheduler_GroupTaskRunsDependenciesOnly(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g, err := domain.NewSiteGraph("/tmp/root")
		require.NoError(t, err)
		s, m := setupSchedulerTest(t)

		clean := m.executor.EXPECT().Execute(gomock.Any(), matchTask(domain.TaskClean), gomock.Any()).Return(nil)
		pages := m.executor.EXPECT().Execute(gomock.Any(), matchTask(domain.TaskPages), gomock.Any()).Return(nil).After(clean)
		images := m.executor.EXPECT().Execute(gomock.Any(), matchTask(domain.TaskImages), gomock.Any()).Return(nil).After(clean)
		cp := m.executor.EXPECT().Execute(gomock.Any(), matchTask(domain.TaskCopy), gomock.Any()).Return(nil).After(clean)
		m.executor.EXPECT().Execute(gomock.Any(), matchTask(domain.TaskSass), gomock.Any()).Return(nil).
			After(pages).After(images).After(cp)

		require.NoError(t, s.Run(context.Background(), g, []string{domain.TaskBuild}, scheduler.RunOptions{Parallelism: 4}))

		status, _ := s.Status(domain.TaskBuild)
		assert.Equal(t, scheduler.StatusCompleted, status)
	})
}

func TestScheduler_UnknownTarget(t *testing.T) {
	g := createGraphHelper(t, map[string][]string{"A": {}})
	s, _ := setupSchedulerTest(t)

	err := s.Run(context.Background(), g, []string{"missing"}, scheduler.RunOptions{Parallelism: 1})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrTaskNotFound.Error())
}

func TestScheduler_NoTargets(t *testing.T) {
	g := createGraphHelper(t, map[string][]string{"A": {}})
	s, _ := setupSchedulerTest(t)

	err := s.Run(context.Background(), g, nil, scheduler.RunOptions{Parallelism: 1})
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestScheduler_RecordsDependenciesOnSpan(t *testing.T) {
	g := createGraphHelper(t, map[string][]string{"A": {"B"}})

	ctrl := gomock.NewController(t)
	executor := mocks.NewMockExecutor(ctrl)
	tracer := mocks.NewMockTracer(ctrl)
	spans := map[string]*mocks.MockSpan{"A": mocks.NewMockSpan(ctrl), "B": mocks.NewMockSpan(ctrl)}
	for _, span := range spans {
		span.EXPECT().End()
	}
	spans["A"].EXPECT().SetAttribute("task.dependencies", []string{"B"})

	tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any())
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, name string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, spans[name]
		},
	).Times(2)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	s := scheduler.NewScheduler(executor, tracer)
	require.NoError(t, s.Run(context.Background(), g, []string{"A"}, scheduler.RunOptions{Parallelism: 1}))
}
