package task_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/ad-user-manager/internal/core/events"
	"github.com/frahmantamala/ad-user-manager/internal/task"
	"github.com/frahmantamala/ad-user-manager/internal/tasklog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	It("should run every submitted task", func() {
		var mu sync.Mutex
		var ran []string
		pool := task.NewPool(task.PoolConfig{MaxWorkers: 2, QueueSize: 4}, func(ctx context.Context, t task.Task) {
			mu.Lock()
			ran = append(ran, t.ID)
			mu.Unlock()
		}, testLogger())
		pool.Start()
		defer pool.Shutdown()

		for _, id := range []string{"a", "b", "c", "d", "e"} {
			Expect(pool.Submit(context.Background(), task.Task{ID: id})).To(Succeed())
		}

		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), ran...)
		}).Should(ConsistOf("a", "b", "c", "d", "e"))
	})

	It("should never run more tasks at once than MaxWorkers", func() {
		var running, peak, done int32
		release := make(chan struct{})
		pool := task.NewPool(task.PoolConfig{MaxWorkers: 2, QueueSize: 10}, func(ctx context.Context, t task.Task) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&running, -1)
			atomic.AddInt32(&done, 1)
		}, testLogger())
		pool.Start()
		defer pool.Shutdown()

		for i := 0; i < 6; i++ {
			Expect(pool.Submit(context.Background(), task.Task{ID: "t"})).To(Succeed())
		}

		Eventually(func() int32 { return atomic.LoadInt32(&running) }).Should(Equal(int32(2)))
		Consistently(func() int32 { return atomic.LoadInt32(&running) }, 100*time.Millisecond).Should(Equal(int32(2)))
		close(release)

		Eventually(func() int32 { return atomic.LoadInt32(&done) }).Should(Equal(int32(6)))
		Expect(atomic.LoadInt32(&peak)).To(Equal(int32(2)))
	})

	It("should let a running task finish on shutdown", func() {
		started := make(chan struct{})
		var finished int32
		var ctxErr error
		pool := task.NewPool(task.PoolConfig{MaxWorkers: 1}, func(ctx context.Context, t task.Task) {
			close(started)
			time.Sleep(100 * time.Millisecond)
			ctxErr = ctx.Err()
			atomic.StoreInt32(&finished, 1)
		}, testLogger())
		pool.Start()

		Expect(pool.Submit(context.Background(), task.Task{ID: "slow"})).To(Succeed())
		Eventually(started).Should(BeClosed())

		pool.Shutdown()
		Expect(atomic.LoadInt32(&finished)).To(Equal(int32(1)))
		Expect(ctxErr).NotTo(HaveOccurred())
	})

	It("should refuse work after shutdown", func() {
		pool := task.NewPool(task.PoolConfig{}, func(ctx context.Context, t task.Task) {}, testLogger())
		pool.Start()
		pool.Shutdown()

		Expect(pool.Submit(context.Background(), task.Task{ID: "late"})).To(MatchError(task.ErrPoolClosed))
	})

	It("should stop waiting for queue room when the caller gives up", func() {
		block := make(chan struct{})
		pool := task.NewPool(task.PoolConfig{MaxWorkers: 1, QueueSize: 1}, func(ctx context.Context, t task.Task) {
			<-block
		}, testLogger())
		pool.Start()
		defer pool.Shutdown()
		defer close(block)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		var err error
		for i := 0; i < 5 && err == nil; i++ {
			err = pool.Submit(ctx, task.Task{ID: "fill"})
		}
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})

var _ = Describe("Scheduled task end to end", func() {
	It("should deactivate the account and log exactly one entry", func() {
		dir := NewMockDirectory()
		dir.dns["alice"] = "CN=Alice,DC=example,DC=com"

		bus := events.NewEventBus(testLogger())
		log := tasklog.New(memStore{}, testLogger())
		tasklog.NewEventHandler(log).Subscribe(bus)

		executor := task.NewExecutor(dir, bus, task.ExecutorConfig{}, testLogger())
		pool := task.NewPool(task.PoolConfig{MaxWorkers: 2}, executor.Execute, testLogger())
		pool.Start()
		defer pool.Shutdown()

		scheduler := task.NewScheduler(pool, task.Config{}, testLogger())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = scheduler.Run(ctx) }()

		_, err := scheduler.Schedule(ctx, task.ScheduleTaskDTO{
			Type:     "deactivate_user",
			Username: "alice",
			RunAt:    time.Now().Add(100 * time.Millisecond).Format(time.RFC3339Nano),
			Label:    "offboarding",
		})
		Expect(err).NotTo(HaveOccurred())

		Eventually(log.All, 2*time.Second, 20*time.Millisecond).Should(HaveLen(1))
		Consistently(log.All, 300*time.Millisecond, 50*time.Millisecond).Should(HaveLen(1))

		entry := log.All()[0]
		Expect(entry.Status).To(Equal(tasklog.StatusSuccess))
		Expect(entry.Message).To(Equal("Account deactivated"))
		Expect(entry.Label).To(Equal("offboarding"))
		Expect(dir.DisableCalls()).To(Equal([]disableCall{{DN: "CN=Alice,DC=example,DC=com", Disabled: true}}))
		Expect(scheduler.ListActive()).To(BeEmpty())
	})
})
