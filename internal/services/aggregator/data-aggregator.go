package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/analytics"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
)

// ReadingSource returns a copy of the current readings.
type ReadingSource func() []entities.SensorReading

// AggregatePublisher is satisfied by the dispatcher.
type AggregatePublisher interface {
	PublishAggregate(ctx context.Context, r messages.AggregateReport)
}

// DataAggregatorService periodically summarises the online sensors and
// publishes the report.
type DataAggregatorService struct {
	source    ReadingSource
	publisher AggregatePublisher
	schedule  string
	now       func() time.Time
	log       zerolog.Logger

	mu   sync.Mutex
	last messages.AggregateReport
}

func NewDataAggregatorService(source ReadingSource, publisher AggregatePublisher, schedule string) *DataAggregatorService {
	return &DataAggregatorService{
		source:    source,
		publisher: publisher,
		schedule:  schedule,
		now:       time.Now,
		log:       logger.WithComponent("aggregator"),
	}
}

// Start registers the job and blocks until ctx is cancelled, then waits for
// a running job to finish.
func (d *DataAggregatorService) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(d.schedule, func() { d.aggregateAndPublish(ctx) }); err != nil {
		return fmt.Errorf("invalid aggregate schedule %q: %w", d.schedule, err)
	}
	c.Start()
	d.log.Info().Str("schedule", d.schedule).Msg("aggregator started")

	<-ctx.Done()
	<-c.Stop().Done()
	d.log.Info().Msg("aggregator stopped")
	return nil
}

// Report builds the aggregate for the current readings.
func (d *DataAggregatorService) Report() messages.AggregateReport {
	readings := d.source()
	agg := analytics.OnlineAggregates(readings)
	risk := quality.RiskIndexOf(readings)
	return messages.AggregateReport{
		OnlineSensors: agg.OnlineSensors,
		TotalSensors:  agg.TotalSensors,
		PH:            agg.PH,
		Turbidity:     agg.Turbidity,
		Bacteria:      agg.Bacteria,
		Temperature:   agg.Temperature,
		RiskPct:       risk.Pct,
		RiskLevel:     risk.Level,
		Timestamp:     d.now().UTC(),
	}
}

func (d *DataAggregatorService) aggregateAndPublish(ctx context.Context) {
	r := d.Report()

	d.mu.Lock()
	d.last = r
	d.mu.Unlock()

	d.log.Debug().
		Int("online", r.OnlineSensors).
		Int("risk_pct", r.RiskPct).
		Msg("running aggregation cycle")
	if d.publisher != nil {
		d.publisher.PublishAggregate(ctx, r)
	}
}

// Last returns the most recent published report; zero before the first run.
func (d *DataAggregatorService) Last() messages.AggregateReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
