package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mamaboss/internal/auth"
	"mamaboss/internal/config"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
	"mamaboss/internal/payment"
	"mamaboss/internal/services"
	"mamaboss/internal/sheets"
	gsheet "mamaboss/internal/sheets/google"
	memsheet "mamaboss/internal/sheets/memory"
	"mamaboss/internal/storage"
)

// PaymentGateway charges plans, looks payments up and creates checkouts.
type PaymentGateway interface {
	payment.Processor
	payment.PaymentGetter
	payment.Checkout
}

// NewPaymentGateway returns the processor selected by PAYMENT_MODE.
func NewPaymentGateway(cfg *config.Config, logger *log.Logger) PaymentGateway {
	if cfg.PaymentMode == "mercadopago" {
		logger.Info("Using Mercado Pago payments", "base_url", cfg.MercadoPagoBaseURL)
		return payment.NewMercadoPago(cfg.MercadoPagoBaseURL, cfg.MercadoPagoAccessToken,
			&http.Client{Timeout: 15 * time.Second}, logger)
	}
	logger.Info("Using simulated payments", "failure_rate", cfg.PaymentFailureRate)
	return payment.NewSimulator(cfg.PaymentFailureRate, cfg.PaymentDelay)
}

// NewDeps collects what every service needs from the process.
func NewDeps(cfg *config.Config, logger *log.Logger, store storage.Store, m *metrics.Metrics) services.Deps {
	return services.Deps{
		Store:    store,
		Logger:   logger,
		Metrics:  m,
		Location: cfg.Location(),
		Changes:  services.NewNotifier(),
	}
}

// NewModules wires every service against the embedded catalog and the
// configured payment gateway. financeSync may be nil.
func NewModules(cfg *config.Config, deps services.Deps, gateway PaymentGateway, financeSync services.FinanceSyncPublisher) (*services.Modules, error) {
	catalog, err := services.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return services.NewModules(deps, services.ModulesConfig{
		Subscription: services.SubscriptionConfig{
			Catalog:   catalog,
			Processor: gateway,
			Checkout:  gateway,
			Payments:  gateway,
			URLs: services.CheckoutURLs{
				Success:      cfg.PaymentSuccessURL,
				Failure:      cfg.PaymentFailureURL,
				Pending:      cfg.PaymentPendingURL,
				Notification: cfg.MercadoPagoWebhookURL,
			},
		},
		FinanceSync: financeSync,
	}), nil
}

// NewFinanceWriter returns the Google Sheets client when a spreadsheet is
// configured, and an in-memory sheet otherwise.
func NewFinanceWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.FinanceWriter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled, exporting finances to an in-memory sheet")
		return memsheet.New(), nil
	}
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
}

// NewAuth builds the account service. Google sign-in is enabled only when
// GOOGLE_CLIENT_ID is set.
func NewAuth(ctx context.Context, cfg *config.Config, logger *log.Logger, store storage.Store) (*auth.Service, error) {
	var google auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		v, err := auth.NewIDTokenVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return nil, fmt.Errorf("google sign-in: %w", err)
		}
		google = v
	}
	return auth.NewService(auth.Config{
		Store:  store,
		Tokens: auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Google: google,
		Logger: logger,
	}), nil
}
