package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Job interface {
	Run(context.Context) error
	Name() string
}

// Pool runs submitted jobs on a fixed number of workers over a bounded
// queue. Submit blocks when the queue is full, giving the producer
// backpressure. Stop drains the queue and waits; it never aborts a job
// that has already started.
type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	workers int
	log     zerolog.Logger
}

func NewPool(workers, queueSize int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		log:     log.With().Str("component", "worker-pool").Logger(),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.log.Debug().Int("workers", p.workers).Int("queue", cap(p.jobs)).Msg("starting worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			workerLog := p.log.With().Int("worker_id", id).Logger()

			for job := range p.jobs {
				jobLog := workerLog.With().Str("job", job.Name()).Logger()
				start := time.Now()

				if err := job.Run(jobLog.WithContext(ctx)); err != nil {
					jobLog.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("job failed")
				} else {
					jobLog.Debug().Dur("elapsed", time.Since(start)).Msg("job completed")
				}
			}
		}(i + 1)
	}
}

// Stop closes the queue and waits for queued and in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.log.Debug().Msg("worker pool stopped")
}

func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}
