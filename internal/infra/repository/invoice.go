package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/lngateway/internal/domain"
	"github.com/totegamma/lngateway/internal/infra/database/models"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error) {
	model := models.Invoice{
		OpID:         invoice.OperationID,
		FederationID: invoice.FederationID,
		AppUserID:    invoice.UserID,
		Bolt11:       invoice.Bolt11,
		Amount:       invoice.Amount,
		Tweak:        invoice.Tweak,
		State:        int(invoice.State),
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Invoice{}, err
	}

	return invoiceToDomain(model), nil
}

func (r *InvoiceRepository) GetByOperationID(ctx context.Context, opID string) (domain.Invoice, error) {
	var model models.Invoice
	err := r.db.WithContext(ctx).First(&model, "op_id = ?", opID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invoice{}, domain.NotFoundError{Resource: "invoice"}
		}
		return domain.Invoice{}, err
	}
	return invoiceToDomain(model), nil
}

func (r *InvoiceRepository) ListByState(ctx context.Context, state domain.InvoiceState) ([]domain.Invoice, error) {
	var rows []models.Invoice
	err := r.db.WithContext(ctx).Where("state = ?", int(state)).Order("id asc").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, invoiceToDomain(row))
	}
	return invoices, nil
}

// UpdateState moves an invoice along its lifecycle. The row is locked for
// the duration of the check so an invoice transitions at most once, and only
// away from Pending.
func (r *InvoiceRepository) UpdateState(ctx context.Context, id int, state domain.InvoiceState) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.Invoice
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "invoice"}
			}
			return err
		}

		if !domain.CanTransition(domain.InvoiceState(model.State), state) {
			return domain.ErrInvalidTransition
		}

		return tx.Model(&models.Invoice{}).
			Where("id = ?", id).
			Update("state", int(state)).Error
	})
}

func invoiceToDomain(model models.Invoice) domain.Invoice {
	return domain.Invoice{
		ID:           model.ID,
		OperationID:  model.OpID,
		FederationID: model.FederationID,
		UserID:       model.AppUserID,
		Bolt11:       model.Bolt11,
		Amount:       model.Amount,
		Tweak:        model.Tweak,
		State:        domain.InvoiceState(model.State),
	}
}
