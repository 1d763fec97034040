package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("OTEL_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(60), cfg.Redis.EntitlementTTL)
	assert.Equal(t, "https://success.stripe.mobile", cfg.Checkout.MobileSuccessURL)
	assert.Equal(t, "https://cancel.stripe.mobile", cfg.Checkout.MobileCancelURL)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			cfg:     Config{},
			wantErr: "JWT_SECRET is required",
		},
		{
			name: "stripe key without webhook secret",
			cfg: Config{
				JWT:    JWTConfig{Secret: "s"},
				Stripe: StripeConfig{SecretKey: "sk_test_123"},
			},
			wantErr: "STRIPE_WEBHOOK_SECRET",
		},
		{
			name: "otel enabled without endpoint",
			cfg: Config{
				JWT:  JWTConfig{Secret: "s"},
				OTEL: OTELConfig{Enabled: true},
			},
			wantErr: "OTEL_EXPORTER_OTLP_ENDPOINT",
		},
		{
			name: "mock gateway mode",
			cfg:  Config{JWT: JWTConfig{Secret: "s"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("FLAG_TRUE", "true")
	t.Setenv("FLAG_BAD", "maybe")

	assert.True(t, getEnvAsBool("FLAG_TRUE", false))
	assert.True(t, getEnvAsBool("FLAG_BAD", true))
	assert.False(t, getEnvAsBool("FLAG_UNSET", false))
}
