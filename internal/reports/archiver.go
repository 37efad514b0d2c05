// Package reports archives the monthly winners report to object storage and
// hands out time-limited download links.
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/calendar"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/storage"
)

// ReportSource builds the winners report of a month.
type ReportSource interface {
	GetWinners(ctx context.Context, month, year int) (*models.WinnersReport, error)
}

// ObjectStore is the slice of S3 the archiver needs.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Archived describes a stored report.
type Archived struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Key   string `json:"key"`
	URL   string `json:"url"`
}

// Archiver stores winners reports.
type Archiver struct {
	source ReportSource
	store  ObjectStore
	loc    *time.Location
	logger *zap.Logger
}

// NewArchiver creates an archiver. loc is the challenge timezone.
func NewArchiver(source ReportSource, store ObjectStore, loc *time.Location, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Archiver{source: source, store: store, loc: loc, logger: logger}
}

// ArchivePrevious archives the report of the month before now.
func (a *Archiver) ArchivePrevious(ctx context.Context, now time.Time) error {
	year, month := calendar.PreviousMonth(now.In(a.loc))
	_, err := a.Archive(ctx, year, int(month))
	return err
}

// Archive uploads the month's report as JSON, overwriting any earlier copy.
func (a *Archiver) Archive(ctx context.Context, year, month int) (*Archived, error) {
	report, err := a.source.GetWinners(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	key := storage.ReportKey(year, month)
	url, err := a.store.Put(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	a.logger.Info("winners report archived",
		zap.Int("year", year), zap.Int("month", month),
		zap.Int("weekly_winners", len(report.WeeklyWinners)),
		zap.String("key", key))
	return &Archived{Month: month, Year: year, Key: key, URL: url}, nil
}

// Link returns a pre-signed download URL for an archived report.
func (a *Archiver) Link(ctx context.Context, year, month int) (*Archived, error) {
	key := storage.ReportKey(year, month)
	ok, err := a.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Reason(apperr.ErrReportNotFound, "%04d-%02d", year, month)
	}
	url, err := a.store.PresignGet(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Archived{Month: month, Year: year, Key: key, URL: url}, nil
}
