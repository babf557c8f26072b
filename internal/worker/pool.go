package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/types"
)

// SpawnFunc starts a new engine worker with the given id.
type SpawnFunc func(id int) (*EngineWorker, error)

// Pool keeps a fixed number of engine workers and lends one to each Detect
// call. A nil slot stands for a worker that could not be restarted; it is
// retried on the next acquire.
type Pool struct {
	slots   chan *EngineWorker
	spawn   SpawnFunc
	size    int
	timeout time.Duration
	nextID  atomic.Int64
}

// NewPool starts size workers. timeout bounds each detection call; zero
// leaves it to the caller's context.
func NewPool(size int, timeout time.Duration, spawn SpawnFunc) (*Pool, error) {
	if size < 1 {
		return nil, errors.New("pool size must be at least 1")
	}
	p := &Pool{
		slots:   make(chan *EngineWorker, size),
		spawn:   spawn,
		size:    size,
		timeout: timeout,
	}
	for i := 0; i < size; i++ {
		w, err := p.start()
		if err != nil {
			p.Close()
			return nil, err
		}
		p.slots <- w
	}
	return p, nil
}

// NewEnginePool starts size subprocess workers running script with command.
func NewEnginePool(size int, timeout time.Duration, command, script string) (*Pool, error) {
	return NewPool(size, timeout, func(id int) (*EngineWorker, error) {
		return NewEngineWorker(id, command, script)
	})
}

func (p *Pool) start() (*EngineWorker, error) {
	id := int(p.nextID.Add(1))
	return p.spawn(id)
}

// Detect implements extractor.Extractor.
func (p *Pool) Detect(ctx context.Context, image []byte) ([]types.DetectedFace, error) {
	var w *EngineWorker
	select {
	case w = <-p.slots:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: no idle engine: %v", biometric.ErrDetectionFailed, ctx.Err())
	}

	if w == nil {
		var err error
		if w, err = p.start(); err != nil {
			p.slots <- nil
			return nil, fmt.Errorf("%w: engine restart failed: %v", biometric.ErrDetectionFailed, err)
		}
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	faces, err := w.Detect(callCtx, image)
	if w.Broken() {
		p.slots <- p.replace(w)
	} else {
		p.slots <- w
	}
	return faces, err
}

// replace retires a broken worker and starts a new one in its place.
func (p *Pool) replace(old *EngineWorker) *EngineWorker {
	old.Close()
	logger.Warning("engine worker died, restarting",
		logger.LoggerOptions{Key: "worker", Data: old.ID},
		logger.LoggerOptions{Key: "stderr", Data: old.Logs()})

	w, err := p.start()
	if err != nil {
		logger.Error("failed to restart engine worker", logger.LoggerOptions{Key: "error", Data: err})
		return nil
	}
	return w
}

// Close stops every idle worker. Call it once in-flight Detect calls have returned.
func (p *Pool) Close() {
	for {
		select {
		case w := <-p.slots:
			if w != nil {
				w.Close()
			}
		default:
			return
		}
	}
}

// Size returns the number of worker slots.
func (p *Pool) Size() int {
	return p.size
}
