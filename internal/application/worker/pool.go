// Package worker содержит долгоживущий пул фоновых обработчиков.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/qrave1/TaleRoom/internal/application/constant"
)

type Task func(ctx context.Context)

// Pool выполняет задачи фиксированным числом горутин. Размер пула
// не зависит от количества запросов.
type Pool struct {
	size  int
	queue chan Task
}

func NewPool(size, queueSize int) *Pool {
	if size < 1 {
		size = 1
	}

	return &Pool{
		size:  size,
		queue: make(chan Task, queueSize),
	}
}

// TrySubmit ставит задачу в очередь без ожидания. false - очередь заполнена.
func (p *Pool) TrySubmit(task Task) bool {
	select {
	case p.queue <- task:
		return true
	default:
		return false
	}
}

// Queued возвращает число задач, ожидающих свободного обработчика.
func (p *Pool) Queued() int {
	return len(p.queue)
}

// Run блокируется до отмены ctx.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := range p.size {
		g.Go(func() error {
			p.loop(gctx, i)
			return nil
		})
	}

	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue:
			p.execute(ctx, id, task)
		}
	}
}

func (p *Pool) execute(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(
				"worker task panicked",
				slog.Int(constant.Worker, id),
				slog.Any(constant.Error, fmt.Errorf("panic: %v", r)),
			)
		}
	}()

	task(ctx)
}
