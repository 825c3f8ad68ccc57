package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

const dashboardRecentInvoices = 10 // facturas recientes en el tablero

// DashboardUseCase tablero administrativo: conteos y montos por estado y facturas recientes.
// Todo sale de una sola consulta de agregados del repositorio.
type DashboardUseCase struct {
	invoices repository.InvoiceRepository
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(invoices repository.InvoiceRepository) *DashboardUseCase {
	return &DashboardUseCase{invoices: invoices}
}

// Stats devuelve el tablero. Solo administradores.
func (uc *DashboardUseCase) Stats(ctx context.Context, p entity.Principal) (*dto.AdminDashboardDTO, error) {
	const op = "admin.dashboard"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	if !p.IsAdmin() {
		return nil, domain.Forbidden(op, "solo un administrador puede ver el tablero")
	}
	stats, err := uc.invoices.Stats(ctx, dashboardRecentInvoices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := &dto.AdminDashboardDTO{
		ByAdminStatus:  toBucketDTOs(stats.ByAdminStatus),
		ByStatus:       toBucketDTOs(stats.ByStatus),
		RecentInvoices: make([]dto.RecentInvoiceDTO, 0, len(stats.Recent)),
		Totals: dto.DashboardTotalsDTO{
			TotalInvoices: stats.TotalInvoices,
			TotalAmount:   stats.TotalAmount,
			Pending:       stats.CountAdmin(entity.AdminPending),
			Approved:      stats.CountAdmin(entity.AdminApproved),
			Rejected:      stats.CountAdmin(entity.AdminRejected),
			Expired:       stats.CountAdmin(entity.AdminExpired),
		},
	}
	for _, r := range stats.Recent {
		out.RecentInvoices = append(out.RecentInvoices, dto.RecentInvoiceDTO{
			ID:            r.ID,
			InvoiceNumber: r.InvoiceNumber,
			ClientName:    r.ClientName,
			TotalAmount:   r.TotalAmount,
			Status:        string(r.Status),
			AdminStatus:   string(r.AdminStatus),
			CreatedAt:     formatTimestamp(&r.CreatedAt),
		})
	}
	return out, nil
}

func toBucketDTOs(buckets []entity.StatusBucket) []dto.StatusBucketDTO {
	out := make([]dto.StatusBucketDTO, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, dto.StatusBucketDTO{Status: b.Status, Count: b.Count, Amount: b.Amount})
	}
	return out
}
