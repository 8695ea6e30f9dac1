// Package monitoring provides audit writing for engine decisions.
package monitoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// AuditWriter captures and persists audit events.
type AuditWriter struct {
	logger *observability.Logger
	store  AuditStore
	buffer chan *AuditEvent
	config AuditConfig
	stopCh chan struct{}
}

// AuditStore persists audit events.
type AuditStore interface {
	SaveAuditEvent(ctx context.Context, event *storage.AuditEvent) error
	BatchSaveAuditEvents(ctx context.Context, events []storage.AuditEvent) error
}

// AuditConfig configures the audit writer.
type AuditConfig struct {
	BufferSize    int
	FlushInterval time.Duration
	EnableAsync   bool
	IncludeDetail bool
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		EnableAsync:   true,
		IncludeDetail: true,
	}
}

// AuditEvent represents an engine decision to be recorded.
type AuditEvent struct {
	Action      storage.AuditAction
	PartID      *uuid.UUID
	VehicleSlug string
	MatchTier   storage.MatchTier
	Detail      map[string]interface{}
	Actor       string
	OccurredAt  time.Time
}

// NewAuditWriter creates a new audit writer.
func NewAuditWriter(logger *observability.Logger, store AuditStore, config AuditConfig) *AuditWriter {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}

	w := &AuditWriter{
		logger: logger,
		store:  store,
		buffer: make(chan *AuditEvent, config.BufferSize),
		config: config,
		stopCh: make(chan struct{}),
	}

	if config.EnableAsync {
		go w.runFlushLoop()
	}

	return w
}

// RecordPartResolved records that an incoming part matched an existing identity.
func (w *AuditWriter) RecordPartResolved(ctx context.Context, partID uuid.UUID, tier storage.MatchTier, actor string, detail map[string]interface{}) error {
	return w.record(ctx, &AuditEvent{
		Action:    storage.AuditActionPartResolved,
		PartID:    &partID,
		MatchTier: tier,
		Detail:    detail,
		Actor:     actor,
	})
}

// RecordPartCreated records that a new part identity was inserted.
func (w *AuditWriter) RecordPartCreated(ctx context.Context, partID uuid.UUID, actor string, detail map[string]interface{}) error {
	return w.record(ctx, &AuditEvent{
		Action:    storage.AuditActionPartCreated,
		PartID:    &partID,
		MatchTier: storage.MatchTierInserted,
		Detail:    detail,
		Actor:     actor,
	})
}

// RecordConflictRecovered records an insert that lost a race and re-resolved
// to the winning row.
func (w *AuditWriter) RecordConflictRecovered(ctx context.Context, partID uuid.UUID, actor string, detail map[string]interface{}) error {
	return w.record(ctx, &AuditEvent{
		Action:    storage.AuditActionConflictRecovered,
		PartID:    &partID,
		MatchTier: storage.MatchTierRecovered,
		Detail:    detail,
		Actor:     actor,
	})
}

// RecordFitmentSaved records a persisted fitment claim.
func (w *AuditWriter) RecordFitmentSaved(ctx context.Context, partID uuid.UUID, vehicleSlug string, confidence float64, actor string) error {
	return w.record(ctx, &AuditEvent{
		Action:      storage.AuditActionFitmentSaved,
		PartID:      &partID,
		VehicleSlug: vehicleSlug,
		Actor:       actor,
		Detail: map[string]interface{}{
			"confidence": confidence,
		},
	})
}

// RecordRecommendationSaved records a persisted advisor recommendation.
func (w *AuditWriter) RecordRecommendationSaved(ctx context.Context, partID uuid.UUID, vehicleSlug, upgradeKey string, rank int, actor string) error {
	return w.record(ctx, &AuditEvent{
		Action:      storage.AuditActionRecommendationSaved,
		PartID:      &partID,
		VehicleSlug: vehicleSlug,
		Actor:       actor,
		Detail: map[string]interface{}{
			"upgrade_key": upgradeKey,
			"rank":        rank,
		},
	})
}

// RecordRankVacated records that an occupied rank slot was cleared for a new pick.
func (w *AuditWriter) RecordRankVacated(ctx context.Context, displacedPartID uuid.UUID, vehicleSlug, upgradeKey string, rank int) error {
	return w.record(ctx, &AuditEvent{
		Action:      storage.AuditActionRankVacated,
		PartID:      &displacedPartID,
		VehicleSlug: vehicleSlug,
		Detail: map[string]interface{}{
			"upgrade_key": upgradeKey,
			"rank":        rank,
		},
	})
}

// record sends an event for recording.
func (w *AuditWriter) record(ctx context.Context, event *AuditEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if w.config.EnableAsync {
		select {
		case w.buffer <- event:
			return nil
		default:
			// Buffer full, log warning and write synchronously
			w.logger.Warn().Msg("Audit buffer full, writing synchronously")
			return w.writeEvent(ctx, event)
		}
	}
	return w.writeEvent(ctx, event)
}

// writeEvent persists an event to storage.
func (w *AuditWriter) writeEvent(ctx context.Context, event *AuditEvent) error {
	if w.store == nil {
		// Log only mode
		w.logger.Info().
			Str("action", string(event.Action)).
			Str("vehicle_slug", event.VehicleSlug).
			Str("match_tier", string(event.MatchTier)).
			Msg("Audit event (no store)")
		return nil
	}

	return w.store.SaveAuditEvent(ctx, w.toStorageEvent(event))
}

// runFlushLoop periodically flushes buffered events.
func (w *AuditWriter) runFlushLoop() {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	var batch []*AuditEvent

	for {
		select {
		case event := <-w.buffer:
			batch = append(batch, event)
			if len(batch) >= 100 {
				w.flushBatch(batch)
				batch = nil
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flushBatch(batch)
				batch = nil
			}
		case <-w.stopCh:
			// Drain whatever is still buffered, then flush
			for {
				select {
				case event := <-w.buffer:
					batch = append(batch, event)
				default:
					if len(batch) > 0 {
						w.flushBatch(batch)
					}
					return
				}
			}
		}
	}
}

// flushBatch writes a batch of events.
func (w *AuditWriter) flushBatch(batch []*AuditEvent) {
	if w.store == nil {
		for _, event := range batch {
			w.logger.Info().
				Str("action", string(event.Action)).
				Str("vehicle_slug", event.VehicleSlug).
				Str("match_tier", string(event.MatchTier)).
				Msg("Audit event (batch, no store)")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storageEvents := make([]storage.AuditEvent, len(batch))
	for i, event := range batch {
		storageEvents[i] = *w.toStorageEvent(event)
	}

	if err := w.store.BatchSaveAuditEvents(ctx, storageEvents); err != nil {
		w.logger.Error().Err(err).Int("count", len(batch)).Msg("Failed to flush audit batch")
	} else {
		w.logger.Debug().Int("count", len(batch)).Msg("Flushed audit batch")
	}
}

func (w *AuditWriter) toStorageEvent(event *AuditEvent) *storage.AuditEvent {
	var detailJSON json.RawMessage
	if event.Detail != nil && w.config.IncludeDetail {
		detailJSON, _ = json.Marshal(event.Detail)
	}

	return &storage.AuditEvent{
		ID:          uuid.New(),
		Action:      event.Action,
		PartID:      event.PartID,
		VehicleSlug: event.VehicleSlug,
		MatchTier:   event.MatchTier,
		Detail:      detailJSON,
		Actor:       event.Actor,
		OccurredAt:  event.OccurredAt,
	}
}

// Stop stops the audit writer and flushes any buffered events.
func (w *AuditWriter) Stop() {
	close(w.stopCh)
}
