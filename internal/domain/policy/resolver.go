package policy

import (
	"context"
	"errors"
)

// StoreAPI is the persistence surface the resolver depends on.
type StoreAPI interface {
	CompanyPolicy(ctx context.Context, companyID string) (CalculationPolicy, error)
	UpsertCompanyPolicy(ctx context.Context, p CalculationPolicy) (CalculationPolicy, error)
	TemplateByID(ctx context.Context, templateID string) (Template, error)
	DefaultTemplate(ctx context.Context) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	CreateTemplate(ctx context.Context, t Template) (string, error)
	UpdateTemplate(ctx context.Context, t Template) error
	DeleteTemplate(ctx context.Context, templateID string) error
}

// Resolver centralizes company/template resolution so the calculator always
// receives an explicit, fully materialized policy.
type Resolver struct {
	store StoreAPI
}

func NewResolver(store StoreAPI) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the effective policy for a company: its own values when it
// has an explicit policy, otherwise the default template materialized on the
// fly. A system with neither is misconfigured and calculation must halt.
func (r *Resolver) Resolve(ctx context.Context, companyID string) (CalculationPolicy, error) {
	owned, err := r.store.CompanyPolicy(ctx, companyID)
	if err == nil {
		return owned, nil
	}
	if !errors.Is(err, ErrNoCompanyPolicy) {
		return CalculationPolicy{}, err
	}

	def, err := r.store.DefaultTemplate(ctx)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return CalculationPolicy{}, &ConfigurationError{Reason: "company " + companyID + " has no policy and no default template exists"}
		}
		return CalculationPolicy{}, err
	}
	return def.Materialize(companyID), nil
}

// ApplyTemplate deep-copies a template into a company-owned policy. From then
// on edits are company-local and template changes have no retroactive effect.
func (r *Resolver) ApplyTemplate(ctx context.Context, companyID, templateID string) (CalculationPolicy, error) {
	tpl, err := r.store.TemplateByID(ctx, templateID)
	if err != nil {
		return CalculationPolicy{}, err
	}
	owned := tpl.Materialize(companyID)
	if err := owned.Validate(); err != nil {
		return CalculationPolicy{}, err
	}
	return r.store.UpsertCompanyPolicy(ctx, owned)
}

// UpdatePolicy applies a partial, company-local edit on top of the company's
// current effective policy.
func (r *Resolver) UpdatePolicy(ctx context.Context, companyID string, update Update) (CalculationPolicy, error) {
	current, err := r.Resolve(ctx, companyID)
	if err != nil {
		return CalculationPolicy{}, err
	}
	current.CompanyID = companyID

	if update.OvertimePct != nil {
		current.OvertimePct = *update.OvertimePct
	}
	if update.NightShiftPct != nil {
		current.NightShiftPct = *update.NightShiftPct
	}
	if update.HolidayPct != nil {
		current.HolidayPct = *update.HolidayPct
	}
	if update.AdvancePct != nil {
		current.AdvancePct = *update.AdvancePct
	}
	if update.VoucherMode != nil {
		current.VoucherMode = *update.VoucherMode
	}
	if update.VoucherSettledSeparately != nil {
		current.VoucherSettledSeparately = *update.VoucherSettledSeparately
	}
	if update.BusinessDaysRule != nil {
		current.BusinessDaysRule = *update.BusinessDaysRule
	}
	if update.DSRMethod != nil {
		current.DSRMethod = *update.DSRMethod
	}

	if err := current.Validate(); err != nil {
		return CalculationPolicy{}, err
	}
	return r.store.UpsertCompanyPolicy(ctx, current)
}

func (r *Resolver) ListTemplates(ctx context.Context) ([]Template, error) {
	return r.store.ListTemplates(ctx)
}

func (r *Resolver) CreateTemplate(ctx context.Context, tpl Template) (string, error) {
	tpl.IsDefault = false
	if err := tpl.Materialize("").Validate(); err != nil {
		return "", err
	}
	return r.store.CreateTemplate(ctx, tpl)
}

// UpdateTemplate edits a non-default template. The default template is a
// protected record and every edit to it is rejected.
func (r *Resolver) UpdateTemplate(ctx context.Context, tpl Template) error {
	existing, err := r.store.TemplateByID(ctx, tpl.ID)
	if err != nil {
		return err
	}
	if existing.IsDefault {
		return ErrTemplateProtected
	}
	tpl.IsDefault = false
	if err := tpl.Materialize("").Validate(); err != nil {
		return err
	}
	return r.store.UpdateTemplate(ctx, tpl)
}

func (r *Resolver) DeleteTemplate(ctx context.Context, templateID string) error {
	existing, err := r.store.TemplateByID(ctx, templateID)
	if err != nil {
		return err
	}
	if existing.IsDefault {
		return ErrTemplateProtected
	}
	return r.store.DeleteTemplate(ctx, templateID)
}
