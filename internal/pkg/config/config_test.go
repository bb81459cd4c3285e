package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Pricing.Currency)
	assert.Equal(t, "50", cfg.Pricing.FreeShippingThreshold.String())
	assert.Equal(t, "10", cfg.Pricing.FlatShippingFee.String())
	assert.Equal(t, "0.1", cfg.Pricing.TaxRate.String())
	assert.Equal(t, DefaultServiceAreaCities, cfg.Delivery.ServiceAreaCities)
	assert.Equal(t, 5*time.Second, cfg.Checkout.CreateOrderTimeout)
	assert.Equal(t, 10*time.Second, cfg.Checkout.CaptureTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Checkout.SessionIdleTTL)
	assert.Equal(t, time.Minute, cfg.Reconciler.Interval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PRICING_TAX_RATE", "0.14")
	t.Setenv("PRICING_FREE_SHIPPING_THRESHOLD", "75.50")
	t.Setenv("CHECKOUT_CAPTURE_TIMEOUT", "3s")
	t.Setenv("ORDER_SERVICE_ADDR", "order-service:9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.14", cfg.Pricing.TaxRate.String())
	assert.Equal(t, "75.5", cfg.Pricing.FreeShippingThreshold.String())
	assert.Equal(t, 3*time.Second, cfg.Checkout.CaptureTimeout)
	assert.Equal(t, "order-service:9090", cfg.OrderService.Addr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	yaml := `
pricing:
  currency: EUR
  flat_shipping_fee: "7.5"
delivery:
  service_area_cities: ["luxor"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Pricing.Currency)
	assert.Equal(t, "7.5", cfg.Pricing.FlatShippingFee.String())
	assert.Equal(t, []string{"luxor"}, cfg.Delivery.ServiceAreaCities)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PRICING_TAX_RATE", "1.5")
	t.Setenv("CHECKOUT_CREATE_ORDER_TIMEOUT", "0s")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricing.tax_rate")
	assert.Contains(t, err.Error(), "checkout.create_order_timeout")
}

func TestLoadRejectsMalformedDecimal(t *testing.T) {
	t.Setenv("WALLET_DECLINE_ABOVE", "lots")

	_, err := Load("")
	require.Error(t, err)
}
