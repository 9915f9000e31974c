package dom

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrLoopClosed 事件循环已停止
var ErrLoopClosed = errors.New("dom: event loop closed")

const (
	defaultQueueSize         = 64
	defaultMaxDeliveryRounds = 16
)

// LoopOption 事件循环选项
type LoopOption func(*EventLoop)

// WithQueueSize 设置任务队列容量
func WithQueueSize(n int) LoopOption {
	return func(l *EventLoop) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithMaxDeliveryRounds 设置每个任务后检查点最多执行的投递轮数
func WithMaxDeliveryRounds(n int) LoopOption {
	return func(l *EventLoop) {
		if n > 0 {
			l.maxRounds = n
		}
	}
}

// WithLoopLogger 设置日志记录器
func WithLoopLogger(logger *zap.Logger) LoopOption {
	return func(l *EventLoop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// EventLoop 单一执行上下文。任务逐个在 Run 的 goroutine 上执行，
// 每个任务结束后运行变更检查点，使观察器回调在下一个任务开始前完成。
type EventLoop struct {
	doc       *Document
	tasks     chan *task
	done      chan struct{}
	queueSize int
	maxRounds int
	logger    *zap.Logger
}

type task struct {
	fn       func()
	err      error
	finished chan struct{} // 任务和检查点都结束后关闭，Post 的任务为 nil
}

// NewEventLoop 为文档创建事件循环
func NewEventLoop(doc *Document, opts ...LoopOption) *EventLoop {
	l := &EventLoop{
		doc:       doc,
		done:      make(chan struct{}),
		queueSize: defaultQueueSize,
		maxRounds: defaultMaxDeliveryRounds,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.tasks = make(chan *task, l.queueSize)
	return l
}

// Document 返回循环所属的文档
func (l *EventLoop) Document() *Document {
	return l.doc
}

// Run 执行任务直到 ctx 结束。只能调用一次。
func (l *EventLoop) Run(ctx context.Context) error {
	defer close(l.done)
	l.logger.Debug("event loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("event loop stopped")
			return nil
		case t := <-l.tasks:
			l.runTask(t)
		}
	}
}

// Post 排入一个任务，不等待其执行
func (l *EventLoop) Post(ctx context.Context, fn func()) error {
	return l.enqueue(ctx, &task{fn: fn})
}

// Call 排入任务并等待它和随后的检查点完成。任务 panic 时返回错误。
func (l *EventLoop) Call(ctx context.Context, fn func()) error {
	t := &task{fn: fn, finished: make(chan struct{})}
	if err := l.enqueue(ctx, t); err != nil {
		return err
	}

	select {
	case <-t.finished:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-t.finished:
			return t.err
		default:
			return ErrLoopClosed
		}
	}
}

func (l *EventLoop) enqueue(ctx context.Context, t *task) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}

	select {
	case l.tasks <- t:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *EventLoop) runTask(t *task) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("dom: task panicked: %v", r)
				l.logger.Error("event loop task panicked", zap.Any("panic", r))
			}
		}()
		t.fn()
	}()
	l.checkpoint()
	if t.finished != nil {
		close(t.finished)
	}
}

func (l *EventLoop) checkpoint() {
	if l.doc == nil {
		return
	}
	for round := 0; round < l.maxRounds; round++ {
		if !l.doc.HasPendingMutations() {
			return
		}
		l.doc.DeliverMutations()
	}
	if l.doc.HasPendingMutations() {
		l.logger.Warn("mutation delivery rounds exhausted, deferring remaining records",
			zap.Int("rounds", l.maxRounds))
	}
}
