package loop

import (
	"context"
	"testing"
	"time"
)

func TestMicrotasksRunAfterTask(t *testing.T) {
	l := New(Config{})
	var order []string

	l.Post(func() {
		l.QueueMicrotask(func() {
			order = append(order, "micro")
			l.QueueMicrotask(func() { order = append(order, "nested") })
		})
		order = append(order, "task")
	})
	l.Post(func() { order = append(order, "task2") })

	if n := l.RunPending(); n != 2 {
		t.Errorf("RunPending() = %d, want 2", n)
	}
	want := []string{"task", "micro", "nested", "task2"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestPanicDoesNotStopLoop(t *testing.T) {
	l := New(Config{})
	ran := false
	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })
	l.RunPending()
	if !ran {
		t.Error("task after panic did not run")
	}
}

func TestPostAfterClose(t *testing.T) {
	l := New(Config{})
	l.Close()
	l.Close()
	if l.Post(func() {}) {
		t.Error("Post after Close should report false")
	}
}

func TestQueueFull(t *testing.T) {
	l := New(Config{QueueSize: 1})
	if !l.Post(func() {}) {
		t.Fatal("first Post failed")
	}
	if l.Post(func() {}) {
		t.Error("Post on full queue should report false")
	}
}

func TestRunAndAfterFunc(t *testing.T) {
	l := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{})
	l.AfterFunc(5*time.Millisecond, func() { close(fired) })

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer callback never ran")
	}

	l.Close()
	if err := <-errCh; err != nil {
		t.Errorf("Run() = %v, want nil after Close", err)
	}
}

func TestTimerStop(t *testing.T) {
	l := New(Config{})
	timer := l.AfterFunc(time.Hour, func() {})
	if !timer.Stop() {
		t.Error("Stop() = false for pending timer")
	}
}

func TestPostWaitBlocksUntilQueueDrains(t *testing.T) {
	l := New(Config{QueueSize: 1})
	if !l.Post(func() {}) {
		t.Fatal("first Post failed")
	}

	ran := false
	posted := make(chan bool, 1)
	go func() { posted <- l.PostWait(context.Background(), func() { ran = true }) }()

	select {
	case <-posted:
		t.Fatal("PostWait returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	l.RunPending()
	select {
	case ok := <-posted:
		if !ok {
			t.Fatal("PostWait() = false, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PostWait never queued the task")
	}
	l.RunPending()
	if !ran {
		t.Error("task queued by PostWait did not run")
	}
}

func TestPostWaitFailsOnClose(t *testing.T) {
	l := New(Config{QueueSize: 1})
	l.Post(func() {})

	posted := make(chan bool, 1)
	go func() { posted <- l.PostWait(context.Background(), func() {}) }()
	l.Close()

	select {
	case ok := <-posted:
		if ok {
			t.Error("PostWait() = true after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PostWait did not return after Close")
	}
}

func TestPostWaitHonorsContext(t *testing.T) {
	l := New(Config{QueueSize: 1})
	l.Post(func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if l.PostWait(ctx, func() {}) {
		t.Error("PostWait() = true on a full queue with an expired context")
	}
}
