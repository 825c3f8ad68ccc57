package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/audit"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/notification"
	infrapdf "github.com/jhoicas/facturacion-sri/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
	httpRouter "github.com/jhoicas/facturacion-sri/internal/interfaces/http"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// wire arma los casos de uso. cleanup cierra pool y conexiones externas.
func wire(ctx context.Context, cfg *config.Config, log *logger.Logger, useMemory bool) (httpRouter.RouterDeps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (httpRouter.RouterDeps, func(), error) {
		cleanup()
		return httpRouter.RouterDeps{}, func() {}, err
	}

	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		return fail(fmt.Errorf("BILLING_TIMEZONE inválida: %w", err))
	}

	// ── Persistencia ──────────────────────────────────────────────────────────
	var (
		tx      billing.TxRunner
		reads   billing.Repos
		auditor billing.Auditor
	)
	if useMemory {
		store := memory.NewStore()
		seedDevelopment(store)
		tx, reads = store, store.Repos()
		auditor = audit.New(store.Audit(), log)
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pool.Close)
		tx, reads = postgres.NewTxRunner(pool), postgres.NewRepos(pool)
		auditor = audit.New(postgres.NewAuditRepository(pool), log)
	}

	// ── SRI ───────────────────────────────────────────────────────────────────
	issuer := domainsri.Issuer{
		RUC:             cfg.SRI.RUC,
		RazonSocial:     cfg.SRI.RazonSocial,
		NombreComercial: cfg.SRI.NombreComercial,
		DirMatriz:       cfg.SRI.DirMatriz,
		Establishment:   cfg.SRI.Establishment,
		EmissionPoint:   cfg.SRI.EmissionPoint,
		Environment:     cfg.SRI.EnvironmentCode(),
	}
	sign, err := buildSigner(cfg.SRI, log)
	if err != nil {
		return fail(err)
	}
	authority := buildAuthority(cfg.SRI, log)

	// ── Despacho ──────────────────────────────────────────────────────────────
	dispatcher, closeDispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeDispatcher)

	taxRate := cfg.Billing.TaxRate
	invoices := billing.NewInvoiceUseCase(tx, reads, billing.NewStockLedger(), dispatcher,
		infrapdf.NewRIDEGenerator(issuer, taxRate), auditor, log,
		billing.InvoiceConfig{TaxRate: taxRate, DueDays: cfg.Billing.DueDays, Location: loc})
	payments := billing.NewPaymentLedger(tx, reads, auditor, log, loc)
	documents := billing.NewDocumentOrchestrator(tx, reads,
		domainsri.NewAccessKeyGenerator(domainsri.Layout(cfg.SRI.KeyLayout)),
		infrasri.NewXMLBuilder(), sign, authority, auditor, log,
		billing.DocumentConfig{Issuer: issuer, TaxRate: taxRate})

	return httpRouter.RouterDeps{
		Invoices:  invoices,
		Payments:  payments,
		Documents: documents,
		Dashboard: billing.NewDashboardUseCase(reads.Invoices),
		JWTSecret: cfg.JWT.Secret,
		Logger:    log,
	}, cleanup, nil
}

// buildSigner XAdES con el certificado del emisor; sin certificado, huella de contenido.
func buildSigner(cfg config.SRIConfig, log *logger.Logger) (pkgsri.Signer, error) {
	if cfg.CertPath == "" {
		if cfg.Mode == "soap" {
			return nil, fmt.Errorf("SRI_MODE=soap requiere SRI_CERT_PATH")
		}
		log.Warn().Msg("sin certificado: firma de marcador por hash, no válida ante el SRI")
		return infrasri.NewContentHashSigner(), nil
	}
	cert, err := signer.Load(cfg.CertPath, cfg.CertKeyPath, cfg.CertPassword)
	if err != nil {
		return nil, fmt.Errorf("cargar certificado: %w", err)
	}
	s, err := signer.NewXAdESSigner(cert)
	if err != nil {
		return nil, err
	}
	log.Info().Str("cert", cfg.CertPath).Msg("firma XAdES-BES habilitada")
	return s, nil
}

func buildAuthority(cfg config.SRIConfig, log *logger.Logger) billing.FiscalAuthorizationClient {
	if cfg.Mode == "soap" {
		env := infrasri.EnvTest
		if cfg.Environment == "production" {
			env = infrasri.EnvProduction
		}
		return infrasri.NewSOAPClient(infrasri.SOAPConfig{
			Environment: env,
			Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		}, log)
	}
	log.Warn().Msg("SRI_MODE=stub: autorización simulada")
	return infrasri.NewStubClient(cfg.EnvironmentCode())
}

func buildDispatcher(cfg *config.Config, log *logger.Logger) (billing.Dispatcher, func(), error) {
	switch cfg.Mail.Driver {
	case "smtp":
		if cfg.Mail.Host == "" || cfg.Mail.From == "" {
			return nil, nil, fmt.Errorf("MAIL_DRIVER=smtp requiere SMTP_HOST y SMTP_FROM")
		}
		return notification.NewSMTPDispatcher(cfg.Mail, log), func() {}, nil
	case "amqp":
		conn, err := notification.Dial(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			return nil, nil, err
		}
		closeConn := func() {
			if err := conn.Close(); err != nil {
				log.Warn().Err(err).Msg("cerrar conexión AMQP")
			}
		}
		return notification.NewAMQPDispatcher(conn.Chn, cfg.AMQP.Queue, cfg.Mail.IssuerName, log), closeConn, nil
	case "log", "":
		return notification.NewLogDispatcher(cfg.Mail.IssuerName, log), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("MAIL_DRIVER desconocido: %s", cfg.Mail.Driver)
	}
}

// seedDevelopment datos mínimos para probar la API sin base de datos.
func seedDevelopment(store *memory.Store) {
	store.AddClient(entity.Client{
		ID: "00000000-0000-0000-0000-000000000c01", Name: "Consumidor Final Demo",
		Email: "demo@example.com", TaxID: "9999999999999", IsActive: true,
	})
	store.AddProduct(entity.Product{
		ID: "00000000-0000-0000-0000-000000000a01", Code: "DEMO-1", Name: "Producto demo",
		Price: decimal.NewFromInt(10), StockQuantity: decimal.NewFromInt(100), IsActive: true,
	})
}
