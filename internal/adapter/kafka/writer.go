package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/meteocat-episodes-service/internal/config"
	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
	"github.com/couchcryptid/meteocat-episodes-service/internal/selection"
)

// messageWriter is the part of *kafkago.Writer the adapter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes classified region levels to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer  messageWriter
	catalog domain.RegionCatalog
	logger  *slog.Logger

	mu        sync.Mutex
	published map[int]struct{} // region ids carried by the last successful publish
}

// NewWriter creates a Kafka producer for the configured topic. catalog may be
// nil, in which case messages carry no region names.
func NewWriter(cfg *config.Config, catalog domain.RegionCatalog, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, catalog, logger)
}

func newWriter(mw messageWriter, catalog domain.RegionCatalog, logger *slog.Logger) *Writer {
	return &Writer{writer: mw, catalog: catalog, logger: logger, published: make(map[int]struct{})}
}

// RegionLevel is the value of one published message.
type RegionLevel struct {
	SnapshotID  string    `json:"snapshot_id"`
	Date        string    `json:"date"`
	DayOffset   int       `json:"day_offset"`
	Period      string    `json:"period"`
	RegionID    int       `json:"region_id"`
	RegionName  string    `json:"region_name,omitempty"`
	Level       int       `json:"level"`
	ColorIndex  int       `json:"color_index"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PublishSnapshot writes one message per region in a single WriteMessages
// call, keyed by region id so each region stays on one partition. Regions
// published previously but absent from snap are sent as NoData so consumers
// see the alert clear.
func (w *Writer) PublishSnapshot(ctx context.Context, snap selection.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	regions := make(map[int]domain.Classification, len(snap.Regions)+len(w.published))
	for id, c := range snap.Regions {
		regions[id] = c
	}
	cleared := 0
	for id := range w.published {
		if _, ok := regions[id]; !ok {
			regions[id] = domain.NoData
			cleared++
		}
	}
	if len(regions) == 0 {
		return nil
	}

	snapshotID := uuid.NewString()
	msgs, err := w.buildMessages(snapshotID, snap, regions)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snapshotID, err)
	}

	published := make(map[int]struct{}, len(snap.Regions))
	for id := range snap.Regions {
		published[id] = struct{}{}
	}
	w.published = published

	w.logger.Debug("snapshot published",
		"snapshot_id", snapshotID,
		"date", snap.Date,
		"period", snap.SelectedPeriod,
		"regions", len(msgs),
		"cleared", cleared,
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) buildMessages(snapshotID string, snap selection.Snapshot, regions map[int]domain.Classification) ([]kafkago.Message, error) {
	ids := make([]int, 0, len(regions))
	for id := range regions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	msgs := make([]kafkago.Message, 0, len(ids))
	for _, id := range ids {
		c := regions[id]
		level := RegionLevel{
			SnapshotID:  snapshotID,
			Date:        snap.Date,
			DayOffset:   snap.DayOffset,
			Period:      snap.SelectedPeriod,
			RegionID:    id,
			Level:       c.Level,
			ColorIndex:  c.ColorIndex,
			Color:       c.Color,
			Description: c.Description,
			GeneratedAt: snap.GeneratedAt,
		}
		if w.catalog != nil {
			if r, ok := w.catalog.Lookup(id); ok {
				level.RegionName = r.Name
			}
		}

		msg, err := serializeToMessage(level)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// serializeToMessage marshals a RegionLevel into a Kafka message.
func serializeToMessage(level RegionLevel) (kafkago.Message, error) {
	data, err := json.Marshal(level)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region level: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(level.RegionID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "snapshot_id", Value: []byte(level.SnapshotID)},
			{Key: "date", Value: []byte(level.Date)},
			{Key: "period", Value: []byte(level.Period)},
		},
	}, nil
}
