package handler

import (
	"context"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/service"
)

type visitRecorder interface {
	RecordVisit(ctx context.Context, articleID uint, sourceAddress string, now time.Time) (service.VisitOutcome, error)
	ResetTotals(ctx context.Context, actor *db.User, articleIDs []uint) (int64, error)
	CountSince(ctx context.Context, articleID uint, since time.Time) (int64, error)
}
