package payroll

const (
	StatusDraft  = "draft"
	StatusClosed = "closed"
	StatusPaid   = "paid"

	WarningNegativeNet = "negative_net"
	WarningNoWorkDays  = "no_work_days"

	CategoryEarning   = "earning"
	CategoryDeduction = "deduction"
	CategoryInfo      = "info"
)
