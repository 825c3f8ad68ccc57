// Package memory implementa los repositorios y el TxRunner en memoria.
// Se usa en tests y en el modo de desarrollo sin base de datos.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// state copia completa de los datos. Las transacciones trabajan sobre un clon.
type state struct {
	invoices  map[string]entity.Invoice
	items     map[string][]entity.InvoiceItem // por invoice_id, en orden de inserción
	payments  map[string]entity.Payment
	products  map[string]entity.Product
	clients   map[string]entity.Client
	documents map[string]entity.FiscalDocument // por invoice_id
	audit     []entity.AuditEvent
	seq       int64
}

func newState() *state {
	return &state{
		invoices:  make(map[string]entity.Invoice),
		items:     make(map[string][]entity.InvoiceItem),
		payments:  make(map[string]entity.Payment),
		products:  make(map[string]entity.Product),
		clients:   make(map[string]entity.Client),
		documents: make(map[string]entity.FiscalDocument),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]entity.InvoiceItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	c.audit = append([]entity.AuditEvent(nil), s.audit...)
	c.seq = s.seq
	return c
}

// runFunc ejecuta fn con acceso exclusivo al estado.
type runFunc func(ctx context.Context, fn func(st *state) error) error

// Store almacén en memoria. Una transacción toma el lock completo: las transacciones
// quedan serializadas y un error descarta el clon de trabajo.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ billing.TxRunner = (*Store)(nil)

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) locked(ctx context.Context, fn func(st *state) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Repos repositorios fuera de transacción; cada llamada es atómica por sí sola.
func (s *Store) Repos() billing.Repos {
	return bind(s.locked)
}

// Audit repositorio de auditoría.
func (s *Store) Audit() *AuditRepo {
	return &AuditRepo{run: s.locked}
}

// RunInTx ejecuta fn sobre un clon del estado y lo publica solo si fn no falla.
func (s *Store) RunInTx(ctx context.Context, fn func(r billing.Repos) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	direct := func(ctx context.Context, f func(st *state) error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return f(work)
	}
	if err := fn(bind(direct)); err != nil {
		return err
	}
	s.st = work
	return nil
}

func bind(run runFunc) billing.Repos {
	return billing.Repos{
		Invoices:  &InvoiceRepo{run: run},
		Payments:  &PaymentRepo{run: run},
		Stock:     &StockRepo{run: run},
		Clients:   &ClientRepo{run: run},
		Documents: &FiscalDocumentRepo{run: run},
	}
}

// ── Carga de datos y consultas auxiliares ────────────────────────────────────

// AddProduct registra un producto del catálogo.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// AddClient registra un cliente.
func (s *Store) AddClient(c entity.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.clients[c.ID] = c
}

// Product devuelve el producto con su stock actual.
func (s *Store) Product(id string) (entity.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

// Invoice devuelve la factura tal como está almacenada.
func (s *Store) Invoice(id string) (entity.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.st.invoices[id]
	return inv, ok
}

// AuditEvents eventos registrados, en orden.
func (s *Store) AuditEvents() []entity.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AuditEvent(nil), s.st.audit...)
}

// ── Auditoría ────────────────────────────────────────────────────────────────

// AuditRepo implementa repository.AuditRepository.
type AuditRepo struct{ run runFunc }

// Insert agrega el evento al final del rastro.
func (r *AuditRepo) Insert(ctx context.Context, event *entity.AuditEvent) error {
	return r.run(ctx, func(st *state) error {
		if event.ID == "" {
			event.ID = newID()
		}
		st.audit = append(st.audit, *event)
		return nil
	})
}

func sortByCreatedDesc[T any](list []T, created func(T) int64, id func(T) string) {
	sort.SliceStable(list, func(i, j int) bool {
		ci, cj := created(list[i]), created(list[j])
		if ci != cj {
			return ci > cj
		}
		return id(list[i]) > id(list[j])
	})
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
