package operator

import (
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher runs operations on a single worker goroutine, one at a time
// and in submission order, so a front end is never blocked by the network.
type Dispatcher struct {
	jobs   chan job
	wg     sync.WaitGroup
	once   sync.Once
	logger zerolog.Logger
}

type job struct {
	name string
	fn   func()
	done chan struct{}
}

// NewDispatcher starts the worker. queueSize bounds pending operations.
func NewDispatcher(logger zerolog.Logger, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		jobs:   make(chan job, queueSize),
		logger: logger,
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Submit queues fn and returns a channel closed once fn has returned.
// Submit blocks while the queue is full and must not be called after Close.
func (d *Dispatcher) Submit(name string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	d.jobs <- job{name: name, fn: fn, done: done}
	return done
}

// Close waits for queued operations to finish and stops the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for j := range d.jobs {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("operation", j.name).Interface("panic", r).Msg("operation panicked")
		}
	}()

	d.logger.Debug().Str("operation", j.name).Msg("operation started")
	j.fn()
	d.logger.Debug().Str("operation", j.name).Msg("operation finished")
}
