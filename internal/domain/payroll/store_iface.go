package payroll

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, rec *Record) error
	ByID(ctx context.Context, companyID, recordID string) (Record, error)
	List(ctx context.Context, companyID string, filter Filter, limit, offset int) ([]Record, int, error)
	// Update persists the record only when the stored version still matches
	// rec.Version, then bumps the version. A stale version yields
	// ErrVersionConflict.
	Update(ctx context.Context, rec *Record) error
	RegisterRows(ctx context.Context, companyID, period string) ([]RegisterRow, error)
	PeriodSummary(ctx context.Context, companyID, period string) (PeriodSummary, error)
}
