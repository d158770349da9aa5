// Package worker runs forecast renders on a bounded pool. Each render is a
// pure function of its request, so the pool needs no shared state beyond the
// job queue; the bound keeps a burst of clients from holding every workbook
// in memory at once.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/internal/pipeline"
	"go.uber.org/zap"
)

// RenderFunc executes one render request.
type RenderFunc func(pipeline.Request) ([]byte, models.RenderReport, error)

// Result is the outcome of one pooled render.
type Result struct {
	Workbook []byte
	Report   models.RenderReport
	Err      error
}

type job struct {
	request pipeline.Request
	reply   chan Result
}

// Pool executes render requests on a fixed number of goroutines.
type Pool struct {
	size   int
	jobs   chan job
	render RenderFunc
	logger *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	quit     chan struct{}
}

// NewPool creates a render pool with the given worker count and queue depth.
func NewPool(size, queueSize int, render RenderFunc, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size:   size,
		jobs:   make(chan job, queueSize),
		render: render,
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) error {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("Render pool started", zap.Int("workers", p.size))
	return nil
}

// Stop waits for in-flight renders to finish, then fails any jobs still
// queued so their submitters are not left blocked on a reply that will
// never come.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
	for {
		select {
		case j := <-p.jobs:
			j.reply <- Result{Err: fmt.Errorf("render pool is shutting down")}
		default:
			p.logger.Info("Render pool stopped")
			return
		}
	}
}

// Name identifies the pool in lifecycle logs.
func (p *Pool) Name() string {
	return "render-pool"
}

// Submit enqueues one render and waits for its result. It fails fast when
// the caller's context ends or the pool is shutting down.
func (p *Pool) Submit(ctx context.Context, req pipeline.Request) Result {
	select {
	case <-p.quit:
		return Result{Err: fmt.Errorf("render pool is shutting down")}
	default:
	}

	j := job{request: req, reply: make(chan Result, 1)}

	select {
	case p.jobs <- j:
	case <-p.quit:
		return Result{Err: fmt.Errorf("render pool is shutting down")}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}

	select {
	case res := <-j.reply:
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			workbook, report, err := p.render(j.request)
			if err != nil {
				p.logger.Error("Render failed",
					zap.Int("worker", id),
					zap.String("client_id", j.request.ClientID),
					zap.Error(err))
			}
			j.reply <- Result{Workbook: workbook, Report: report, Err: err}
		case <-p.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}
