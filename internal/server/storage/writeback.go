package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/logger"
)

var ErrWriteBehindClosed = errors.New("write-behind queue closed")

// WriteFunc 一次持久化写入
type WriteFunc func(ctx context.Context) error

type writeJob struct {
	label string
	fn    WriteFunc
}

type keyQueue struct {
	jobs chan writeJob
	done chan struct{}
}

// WriteBehind 按 key 串行执行的异步写入队列
//
// 每个 key（房间）一个后台 goroutine，同一个 key 的写入按入队顺序执行；
// 入队永不阻塞，队列满时丢弃并记录错误。
// Release 之后同一个 key 再次入队时，新队列等旧队列排空后才开始执行。
type WriteBehind struct {
	size    int
	timeout time.Duration

	mu       sync.Mutex
	queues   map[string]*keyQueue
	draining map[string]chan struct{} // 已释放但尚未排空的队列
	closed   bool
	wg       sync.WaitGroup
}

// NewWriteBehind 创建写入队列，size 为每个 key 的缓冲长度，timeout 为单次写入超时
func NewWriteBehind(size int, timeout time.Duration) *WriteBehind {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WriteBehind{
		size:    size,
		timeout: timeout,
		queues:   make(map[string]*keyQueue),
		draining: make(map[string]chan struct{}),
	}
}

// Enqueue 追加一次写入，返回是否入队成功
func (w *WriteBehind) Enqueue(key, label string, fn WriteFunc) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		log.Warn().Str("key", key).Str("op", label).Msg("💾 写入队列已关闭，丢弃写入")
		return false
	}

	q, ok := w.queues[key]
	if !ok {
		q = &keyQueue{jobs: make(chan writeJob, w.size), done: make(chan struct{})}
		w.queues[key] = q
		w.wg.Add(1)
		go w.run(key, q, w.draining[key])
	}

	select {
	case q.jobs <- writeJob{label: label, fn: fn}:
		return true
	default:
		log.Error().Str("key", key).Str("op", label).Msg("💾 写入队列已满，丢弃写入")
		return false
	}
}

// Release 关闭 key 的队列，已入队的写入仍会执行完
func (w *WriteBehind) Release(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if q, ok := w.queues[key]; ok {
		delete(w.queues, key)
		w.draining[key] = q.done
		close(q.jobs)
	}
}

// Len 当前活跃队列数
func (w *WriteBehind) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queues)
}

// Shutdown 拒绝新写入并等待已入队的写入完成
func (w *WriteBehind) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		for key, q := range w.queues {
			delete(w.queues, key)
			close(q.jobs)
		}
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WriteBehind) run(key string, q *keyQueue, prev <-chan struct{}) {
	defer w.wg.Done()
	if prev != nil {
		<-prev
	}
	for job := range q.jobs {
		w.exec(key, job)
	}
	close(q.done)

	w.mu.Lock()
	if w.draining[key] == q.done {
		delete(w.draining, key)
	}
	w.mu.Unlock()
}

func (w *WriteBehind) exec(key string, job writeJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := job.fn(ctx); err != nil {
		log.Error().Err(err).Str("key", key).Str("op", job.label).Msg("💾 持久化失败")
	}
}
