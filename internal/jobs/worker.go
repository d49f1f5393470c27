package jobs

import (
	"context"
	"log"
	"time"
)

// Processor runs one unit of periodic work.
type Processor interface {
	Name() string
	Process(ctx context.Context) error
}

// Worker runs a Processor once at start and then on every tick.
type Worker struct {
	processor Processor
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor Processor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	name := w.processor.Name()
	log.Printf("%s worker started with interval: %v", name, w.interval)

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", name)
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped: stop signal received", name)
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	if err := w.processor.Process(ctx); err != nil && ctx.Err() == nil {
		log.Printf("%s worker: %v", w.processor.Name(), err)
	}
}

// Stop gracefully stops the worker and waits for the current run to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Printf("%s worker shutdown complete", w.processor.Name())
}
