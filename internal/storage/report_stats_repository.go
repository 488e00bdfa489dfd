package storage

import (
	"context"

	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/models"
)

// ReportStatsRepository appends report summaries to ClickHouse. Rows are
// analytics only; nothing reads them when serving a report.
type ReportStatsRepository struct {
	db *ClickHouseDB
}

// NewReportStatsRepository creates a report stats repository
func NewReportStatsRepository(db *ClickHouseDB) *ReportStatsRepository {
	return &ReportStatsRepository{db: db}
}

// InsertReportStat appends one row
func (r *ReportStatsRepository) InsertReportStat(ctx context.Context, s *models.ReportStat) error {
	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO nft_report_stats (
			request_id, address, total_records, sent_count, received_count, other_count,
			unique_types, image_count, earliest_at, latest_at, tenure, volume, balance,
			pages_fetched, generated_at
		)
	`)
	if err != nil {
		return apperrors.NewDatabaseError("prepare report stats batch", err)
	}

	if err := batch.Append(
		s.RequestID,
		s.Address,
		s.TotalRecords,
		s.SentCount,
		s.ReceivedCount,
		s.OtherCount,
		s.UniqueTypes,
		s.ImageCount,
		s.EarliestAt,
		s.LatestAt,
		s.Tenure,
		s.Volume,
		s.Balance,
		s.PagesFetched,
		s.GeneratedAt,
	); err != nil {
		_ = batch.Abort()
		return apperrors.NewDatabaseError("append report stats", err)
	}

	if err := batch.Send(); err != nil {
		return apperrors.NewDatabaseError("send report stats", err)
	}
	return nil
}
