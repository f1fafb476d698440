package service

import (
	"context"

	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/invoice/document"
	"go.uber.org/zap"
)

// RenderPDF returns the printable PDF of an invoice owned by the caller.
func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	var name, email, phone string
	if invoice.CustomerID != nil {
		customer, err := s.customers.GetByID(ctx, invoice.CustomerID.String())
		switch {
		case err == nil:
			name, email, phone = customer.Name, customer.Email, customer.Phone
		case apperror.KindOf(err) == apperror.KindNotFound:
		default:
			return nil, err
		}
	}

	out, err := s.renderer.Render(ctx, document.FromInvoice(invoice, name, email, phone))
	if err != nil {
		s.log.Error("invoice.render.failed", zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindUnknown, err, "render invoice")
	}
	return out, nil
}
