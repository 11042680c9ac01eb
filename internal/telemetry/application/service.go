package application

import (
	"context"
	"errors"
	"log"

	telemetry "telemetry-console/internal/telemetry/domain"
)

// Publisher receives every labelled table after a successful ingest.
type Publisher interface {
	Publish(table telemetry.Table)
}

// Service ingests device snapshots and serves their labelled tables.
type Service struct {
	repo      telemetry.SnapshotRepository
	labeler   telemetry.Labeler
	publisher Publisher
	logger    *log.Logger
}

// Option configures the service.
type Option func(*Service)

// WithPublisher sets the live publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a Service.
func NewService(repo telemetry.SnapshotRepository, labeler telemetry.Labeler, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("telemetry service: nil repository")
	}
	if labeler == nil {
		return nil, errors.New("telemetry service: nil labeler")
	}
	s := &Service{repo: repo, labeler: labeler, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest stores the snapshot and publishes its labelled table. A snapshot
// older than the stored one returns ErrStaleSnapshot and is not published.
func (s *Service) Ingest(ctx context.Context, snapshot telemetry.Snapshot) (telemetry.Table, error) {
	if err := snapshot.Validate(); err != nil {
		return telemetry.Table{}, err
	}
	snapshot.TS = snapshot.TS.UTC()
	if err := s.repo.SaveLatest(ctx, snapshot); err != nil {
		return telemetry.Table{}, err
	}
	table := telemetry.BuildTable(snapshot, s.labeler)
	if s.publisher != nil {
		s.publisher.Publish(table)
	}
	return table, nil
}

// Table returns the labelled table of the device's latest snapshot.
func (s *Service) Table(ctx context.Context, tenantID, deviceID string) (telemetry.Table, error) {
	if tenantID == "" || deviceID == "" {
		return telemetry.Table{}, telemetry.ErrInvalidSnapshot
	}
	snapshot, err := s.repo.Latest(ctx, tenantID, deviceID)
	if err != nil {
		return telemetry.Table{}, err
	}
	return telemetry.BuildTable(snapshot, s.labeler), nil
}

// Devices lists devices with a stored snapshot.
func (s *Service) Devices(ctx context.Context, tenantID string) ([]string, error) {
	if tenantID == "" {
		return nil, errors.New("telemetry service: missing tenant id")
	}
	devices, err := s.repo.ListDevices(ctx, tenantID)
	if err != nil {
		s.logger.Printf("telemetry service: list devices error: %v", err)
		return nil, err
	}
	return devices, nil
}
