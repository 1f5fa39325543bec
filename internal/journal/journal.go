package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tracklive/internal/metrics"
)

const (
	defaultWorkers    = 2
	defaultBatchSize  = 16
	defaultFlushEvery = 2 * time.Second
	publishTimeout    = 5 * time.Second
)

// Config sizes the journal pipeline. Zero values fall back to defaults.
type Config struct {
	Workers    int
	BatchSize  int
	FlushEvery time.Duration
}

// Journal collects accepted events and ships them downstream in batches.
// Recording never blocks the ingest path; when the pipeline is saturated
// entries are dropped and counted instead.
type Journal struct {
	producer Producer
	log      *zap.Logger

	workers    int
	batchSize  int
	flushEvery time.Duration

	input      chan Entry
	batches    chan []Entry
	shutdownCh chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
}

func New(producer Producer, cfg Config, log *zap.Logger) *Journal {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	return &Journal{
		producer:   producer,
		log:        log.With(zap.String("component", "journal")),
		workers:    cfg.Workers,
		batchSize:  cfg.BatchSize,
		flushEvery: cfg.FlushEvery,
		input:      make(chan Entry, cfg.Workers*cfg.BatchSize*2),
		batches:    make(chan []Entry, cfg.Workers*2),
		shutdownCh: make(chan struct{}),
	}
}

func (j *Journal) Start(ctx context.Context) {
	j.wg.Add(1)
	go j.runAggregator(ctx)

	for i := 0; i < j.workers; i++ {
		j.wg.Add(1)
		go j.runWorker(i)
	}
}

// Record queues one entry. It never blocks; a full buffer drops the entry.
func (j *Journal) Record(entry Entry) {
	select {
	case j.input <- entry:
	default:
		metrics.JournalDroppedTotal.Inc()
		j.log.Warn("journal buffer full, entry dropped",
			zap.String("order", entry.Order))
	}
}

// Shutdown stops intake, flushes what is buffered and closes the producer.
// It returns once everything drained or ctx expired.
func (j *Journal) Shutdown(ctx context.Context) {
	j.once.Do(func() {
		close(j.shutdownCh)

		done := make(chan struct{})
		go func() {
			j.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			j.log.Warn("journal shutdown interrupted", zap.Error(ctx.Err()))
		}

		if err := j.producer.Close(); err != nil {
			j.log.Error("close journal producer", zap.Error(err))
		}
	})
}

func (j *Journal) runAggregator(ctx context.Context) {
	defer j.wg.Done()

	var (
		batch    []Entry
		timer    *time.Timer
		timeoutC <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if len(batch) > 0 {
			j.dispatch(batch)
		}
		close(j.batches)
	}()

	for {
		select {
		case entry := <-j.input:
			batch = append(batch, entry)
			if len(batch) >= j.batchSize {
				j.dispatch(batch)
				batch = nil
				timeoutC = nil
			} else if len(batch) == 1 {
				timer = time.NewTimer(j.flushEvery)
				timeoutC = timer.C
			}

		case <-timeoutC:
			j.dispatch(batch)
			batch = nil
			timeoutC = nil

		case <-ctx.Done():
			return

		case <-j.shutdownCh:
			return
		}
	}
}

func (j *Journal) dispatch(batch []Entry) {
	batchCopy := make([]Entry, len(batch))
	copy(batchCopy, batch)

	select {
	case j.batches <- batchCopy:
	default:
		// Workers are behind; publish from here rather than stall intake.
		j.publish(batchCopy)
	}
}

func (j *Journal) runWorker(id int) {
	defer j.wg.Done()

	for batch := range j.batches {
		j.publish(batch)
	}
	j.log.Debug("journal worker exiting", zap.Int("worker", id))
}

func (j *Journal) publish(batch []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := j.producer.Publish(ctx, batch); err != nil {
		metrics.JournalPublishErrorsTotal.Inc()
		j.log.Error("journal publish failed",
			zap.Int("entries", len(batch)), zap.Error(err))
	}
}
