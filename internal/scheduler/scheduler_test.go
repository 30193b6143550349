package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("期望 ErrInvalidInterval, 实际 %v", err)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	s, err := New(Options{Name: "sweep", Interval: 10 * time.Millisecond}, zerolog.Nop())
	if err != nil {
		t.Fatalf("构造失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			if ticks.Add(1) == 3 {
				cancel()
			}
			return errors.New("失败的 tick 不应中断循环")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("期望 context.Canceled, 实际 %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("调度器未在预期时间内退出")
	}
	if ticks.Load() < 3 {
		t.Fatalf("期望至少 3 次 tick, 实际 %d", ticks.Load())
	}
}

func TestRunHonoursStartupDelayCancellation(t *testing.T) {
	s, _ := New(Options{Interval: time.Millisecond, StartupDelay: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := s.Run(ctx, func(context.Context, time.Time) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) || called {
		t.Fatalf("启动延迟期间取消应直接返回, err=%v called=%v", err, called)
	}
}

func TestAlignedTicks(t *testing.T) {
	s, _ := New(Options{Interval: 5 * time.Minute, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2025, 6, 1, 10, 7, 30, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(time.Date(2025, 6, 1, 10, 10, 0, 0, time.UTC)) {
		t.Fatalf("对齐时间不正确: %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)) {
		t.Fatalf("桶起点不正确: %s", got)
	}
}
