// Package worker handles queued jobs: exporting finance records to Google
// Sheets and applying Mercado Pago payment notifications.
package worker

import (
	"context"
	"errors"
	"fmt"

	"mamaboss/internal/amqp"
	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
	"mamaboss/internal/payment"
)

// FinanceExporter copies one stored finance record to the spreadsheet.
type FinanceExporter interface {
	Export(ctx context.Context, userID, financeID string) (string, error)
}

// PaymentProcessor applies the outcome of a processor payment.
type PaymentProcessor interface {
	ProcessPaymentNotification(ctx context.Context, paymentID string) error
}

// JobWorker dispatches queue messages to the service that owns them.
type JobWorker struct {
	exporter FinanceExporter
	payments PaymentProcessor
	logger   *log.Logger
	metrics  *metrics.Metrics
}

// NewJobWorker creates a worker. exporter may be nil when Sheets export is
// disabled; finance jobs are then acknowledged and dropped.
func NewJobWorker(exporter FinanceExporter, payments PaymentProcessor, logger *log.Logger, m *metrics.Metrics) *JobWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &JobWorker{
		exporter: exporter,
		payments: payments,
		logger:   logger.WithComponent(log.ComponentWorker),
		metrics:  m,
	}
}

// Handle is an amqp.Handler. A returned error puts the message back on
// the queue.
func (w *JobWorker) Handle(ctx context.Context, msg *amqp.Message) error {
	var err error
	switch msg.Type {
	case amqp.TypeFinanceSync:
		var job amqp.FinanceSync
		if decodeErr := msg.Decode(&job); decodeErr != nil {
			return w.drop(ctx, msg, decodeErr)
		}
		err = w.HandleFinanceSync(ctx, job)
	case amqp.TypePaymentNotification:
		var job amqp.PaymentNotification
		if decodeErr := msg.Decode(&job); decodeErr != nil {
			return w.drop(ctx, msg, decodeErr)
		}
		err = w.HandlePaymentNotification(ctx, job)
	default:
		return w.drop(ctx, msg, fmt.Errorf("unknown message type %q", msg.Type))
	}

	if err != nil {
		w.metrics.Job(string(msg.Type), "error")
		return err
	}
	w.metrics.Job(string(msg.Type), "ok")
	return nil
}

// drop acknowledges a message that can never succeed, so it is not
// redelivered.
func (w *JobWorker) drop(ctx context.Context, msg *amqp.Message, reason error) error {
	w.logger.WarnContext(ctx, "Dropping message", "type", msg.Type, log.FieldError, reason)
	w.metrics.Job(string(msg.Type), "dropped")
	return nil
}

// HandleFinanceSync exports a finance record. Records deleted since the
// job was queued are skipped.
func (w *JobWorker) HandleFinanceSync(ctx context.Context, job amqp.FinanceSync) error {
	if w.exporter == nil {
		w.logger.WarnContext(ctx, "No spreadsheet configured, skipping finance export",
			log.FieldUserID, job.UserID,
			log.FieldEntityID, job.FinanceID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing finance sync",
		log.FieldUserID, job.UserID,
		log.FieldEntityID, job.FinanceID)

	ref, err := w.exporter.Export(ctx, job.UserID, job.FinanceID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Finance record no longer exists, skipping export",
			log.FieldUserID, job.UserID,
			log.FieldEntityID, job.FinanceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("export finance %s: %w", job.FinanceID, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced finance record",
		log.FieldUserID, job.UserID,
		log.FieldEntityID, job.FinanceID,
		"sheets_ref", ref)
	return nil
}

// HandlePaymentNotification fetches the payment and updates the owner's
// subscription.
func (w *JobWorker) HandlePaymentNotification(ctx context.Context, job amqp.PaymentNotification) error {
	if job.PaymentID == "" {
		w.logger.WarnContext(ctx, "Dropping payment notification without id", "topic", job.Topic)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing payment notification",
		log.FieldPaymentID, job.PaymentID,
		"topic", job.Topic,
		"action", job.Action)

	err := w.payments.ProcessPaymentNotification(ctx, job.PaymentID)
	if errors.Is(err, payment.ErrNotFound) {
		w.logger.WarnContext(ctx, "Processor does not know payment, dropping notification",
			log.FieldPaymentID, job.PaymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("process payment %s: %w", job.PaymentID, err)
	}
	return nil
}
