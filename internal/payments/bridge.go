// Package payments creates payment intents with the external payment processor.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/partsinc/parts-server/internal/pkg/ctxlog"
	"github.com/partsinc/parts-server/internal/pkg/metrics"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Payment errors.
var (
	ErrProcessor     = errors.New("payment processor error")
	ErrNotConfigured = errors.New("payments are not configured")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Bridge creates payment intents and returns their client secret.
type Bridge interface {
	CreateIntent(ctx context.Context, amount float64) (string, error)
}

// Config holds Stripe settings.
type Config struct {
	SecretKey string
	// APIURL overrides the Stripe API base URL.
	APIURL            string
	Currency          string
	MaxNetworkRetries int64
	HTTPClient        *http.Client
}

// StripeBridge implements Bridge on the Stripe API.
type StripeBridge struct {
	api      *client.API
	currency string
}

// NewStripeBridge creates a bridge. Returns ErrNotConfigured without a secret key.
func NewStripeBridge(cfg Config) (*StripeBridge, error) {
	if cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     slogLogger{},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}

	return &StripeBridge{
		api:      client.New(cfg.SecretKey, backends),
		currency: currency,
	}, nil
}

// MinorUnits converts a major-unit amount to the processor's minor units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent creates a card payment intent for amount in major units.
func (b *StripeBridge) CreateIntent(ctx context.Context, amount float64) (string, error) {
	cents := MinorUnits(amount)
	if cents <= 0 {
		return "", ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(cents),
		Currency:           stripe.String(b.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	intent, err := b.api.PaymentIntents.New(params)
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("error").Inc()
		ctxlog.FromContext(ctx).Warn("payment intent failed", "amount", cents, "error", err)
		return "", fmt.Errorf("%w: %v", ErrProcessor, err)
	}

	metrics.PaymentIntents.WithLabelValues("created").Inc()
	return intent.ClientSecret, nil
}

// slogLogger routes Stripe SDK logs to slog.
type slogLogger struct{}

func (slogLogger) Debugf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (slogLogger) Infof(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (slogLogger) Warnf(format string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (slogLogger) Errorf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
