package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/sheets"
	"mamaboss/internal/storage"
)

// FinanceExporter copies stored finance records to the spreadsheet.
type FinanceExporter struct {
	deps   Deps
	sheets sheets.FinanceWriter
}

func NewFinanceExporter(deps Deps, w sheets.FinanceWriter) *FinanceExporter {
	return &FinanceExporter{deps: deps.withDefaults(), sheets: w}
}

// Export appends the user's record financeID to the spreadsheet and
// returns the sheet reference. A record deleted since it was queued
// yields core.ErrNotFound.
func (e *FinanceExporter) Export(ctx context.Context, userID, financeID string) (string, error) {
	finances, _, err := storage.Load[[]core.Finance](ctx, e.deps.Store, userID, storage.KeyFinances)
	if err != nil {
		return "", err
	}
	i, err := indexOf(finances, financeID, func(f core.Finance) string { return f.ID })
	if err != nil {
		return "", err
	}

	ref, err := e.sheets.AppendFinance(ctx, finances[i])
	if err != nil {
		return "", fmt.Errorf("append to sheets: %w", err)
	}

	e.deps.Logger.InfoContext(ctx, "Exported finance record",
		log.FieldComponent, log.ComponentSheets,
		log.FieldUserID, userID,
		log.FieldEntityID, financeID,
		log.FieldAmountCents, finances[i].Amount.Cents,
		"sheets_ref", ref)
	return ref, nil
}

const jobFinanceSync = "finance.sync"

// SyncProcessorConfig holds configuration for the in-process export queue
type SyncProcessorConfig struct {
	// PollInterval is how often pending items are drained (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items exported per poll (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an item is parked as failed (default: 3)
	MaxRetries int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

type syncItem struct {
	UserID    string
	FinanceID string
	Attempts  int
	LastError string
}

// SyncStats is a snapshot of the export queue.
type SyncStats struct {
	Pending  int `json:"pending"`
	Failed   int `json:"failed"`
	Exported int `json:"exported"`
}

// SyncProcessor exports finance records from an in-memory queue. It
// stands in for the AMQP worker when the API runs without a broker.
type SyncProcessor struct {
	exporter *FinanceExporter
	config   SyncProcessorConfig
	deps     Deps

	mu       sync.Mutex
	pending  []syncItem
	failed   []syncItem
	exported int
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

var _ FinanceSyncPublisher = (*SyncProcessor)(nil)

func NewSyncProcessor(deps Deps, exporter *FinanceExporter, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		exporter: exporter,
		config:   config,
		deps:     deps.withDefaults(),
	}
}

// PublishFinanceSync enqueues a record; it is exported on the next poll.
func (p *SyncProcessor) PublishFinanceSync(_ context.Context, userID, financeID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, syncItem{UserID: userID, FinanceID: financeID})
	return nil
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.deps.Logger.InfoContext(ctx, "Sync processor started",
		log.FieldComponent, log.ComponentWorker,
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to finish the current item.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.deps.Logger.InfoContext(ctx, "Sync processor stopped gracefully", log.FieldComponent, log.ComponentWorker)
	case <-ctx.Done():
		p.deps.Logger.WarnContext(ctx, "Sync processor stop timed out", log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			p.ProcessBatch(ctx)
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch exports up to BatchSize pending items and returns how many
// succeeded.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	p.mu.Lock()
	n := min(p.config.BatchSize, len(p.pending))
	batch := append([]syncItem(nil), p.pending[:n]...)
	p.pending = p.pending[n:]
	p.mu.Unlock()

	ok := 0
	for i, item := range batch {
		if ctx.Err() != nil {
			p.requeue(batch[i:])
			return ok
		}
		if _, err := p.exporter.Export(ctx, item.UserID, item.FinanceID); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		p.deps.Metrics.Job(jobFinanceSync, "success")
		p.mu.Lock()
		p.exported++
		p.mu.Unlock()
		ok++
	}
	return ok
}

func (p *SyncProcessor) requeue(items []syncItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(items, p.pending...)
}

// handleFailure retries an item until MaxRetries, then parks it as failed.
func (p *SyncProcessor) handleFailure(ctx context.Context, item syncItem, err error) {
	item.Attempts++
	item.LastError = err.Error()
	p.deps.Metrics.Job(jobFinanceSync, "failure")

	p.deps.Logger.WarnContext(ctx, "Finance export failed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldEntityID, item.FinanceID,
		"attempt", item.Attempts,
		log.FieldError, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if item.Attempts >= p.config.MaxRetries {
		p.failed = append(p.failed, item)
		p.deps.Logger.ErrorContext(ctx, "Finance export failed permanently after max retries",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, item.UserID,
			log.FieldEntityID, item.FinanceID,
			"attempts", item.Attempts)
		return
	}
	p.pending = append(p.pending, item)
}

func (p *SyncProcessor) Stats() SyncStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SyncStats{Pending: len(p.pending), Failed: len(p.failed), Exported: p.exported}
}

// RetryFailed moves every parked item back to the queue with a fresh budget.
func (p *SyncProcessor) RetryFailed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.failed)
	for _, item := range p.failed {
		item.Attempts = 0
		p.pending = append(p.pending, item)
	}
	p.failed = nil
	return n
}
