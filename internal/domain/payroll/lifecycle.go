package payroll

import "time"

// The lifecycle is draft -> closed -> paid, with reopen returning a record to
// draft from either later state. Transitions are not repeatable: closing a
// closed record or paying a paid one fails.

// Close freezes a draft record for payment.
func (r *Record) Close(now time.Time) error {
	if r.Status != StatusDraft {
		return &StateTransitionError{Current: r.Status, Attempted: StatusClosed}
	}
	r.Status = StatusClosed
	at := now.UTC()
	r.ClosedAt = &at
	return nil
}

// MarkPaid records settlement of a closed record.
func (r *Record) MarkPaid(now time.Time) error {
	if r.Status != StatusClosed {
		return &StateTransitionError{Current: r.Status, Attempted: StatusPaid}
	}
	r.Status = StatusPaid
	at := now.UTC()
	r.PaidAt = &at
	return nil
}

// Reopen returns a closed or paid record to draft and clears both lifecycle
// timestamps, making recalculation possible again.
func (r *Record) Reopen() error {
	if r.Status != StatusClosed && r.Status != StatusPaid {
		return &StateTransitionError{Current: r.Status, Attempted: StatusDraft}
	}
	r.Status = StatusDraft
	r.ClosedAt = nil
	r.PaidAt = nil
	return nil
}

// CanRecalculate reports whether the record's amounts may still change.
func (r *Record) CanRecalculate() bool {
	return r.Status == StatusDraft
}
