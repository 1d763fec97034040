package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingProvisioner fails price provisioning and delegates everything else
type failingProvisioner struct {
	*MockGateway
}

func (failingProvisioner) ProvisionPrice(context.Context, domain.PriceRequest) (*domain.ProvisionedPrice, error) {
	return nil, errors.Join(domain.ErrGateway, errors.New("timeout"))
}

func TestPlanService_CreateProvisionsGateway(t *testing.T) {
	repo := memory.NewPlanRepository()
	svc := NewPlanService(repo, NewMockGateway(testWebhookSecret))
	ctx := context.Background()

	plan, err := svc.Create(ctx, &domain.Plan{Name: "Annual", Price: 9900, Interval: domain.IntervalYear})
	require.NoError(t, err)
	assert.True(t, plan.IsCheckoutReady())
	assert.Equal(t, domain.DefaultCurrency, plan.Currency)
	assert.Equal(t, int64(1), plan.IntervalCount)

	stored, err := svc.Get(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ExternalPriceID, stored.ExternalPriceID)
	assert.Equal(t, plan.ExternalProductID, stored.ExternalProductID)
}

func TestPlanService_CreateRejectsInvalid(t *testing.T) {
	svc := NewPlanService(memory.NewPlanRepository(), NewMockGateway(testWebhookSecret))

	_, err := svc.Create(context.Background(), &domain.Plan{Name: "Broken", Price: 0, Interval: "week"})
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)

	plans, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPlanService_GatewayFailureThenConfigure(t *testing.T) {
	repo := memory.NewPlanRepository()
	ctx := context.Background()

	plan, err := NewPlanService(repo, failingProvisioner{NewMockGateway(testWebhookSecret)}).
		Create(ctx, &domain.Plan{Name: "Monthly", Price: 1999, Interval: domain.IntervalMonth})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGateway)
	require.NotNil(t, plan)
	assert.False(t, plan.IsCheckoutReady())

	svc := NewPlanService(repo, NewMockGateway(testWebhookSecret))
	configured, err := svc.ConfigureWithGateway(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, configured.IsCheckoutReady())
}

func TestPlanService_UpdateKeepsGatewayIDs(t *testing.T) {
	existing := &domain.Plan{
		Name: "Premium", Price: 1999, Currency: "usd", Interval: domain.IntervalMonth, IntervalCount: 1,
		ExternalProductID: "prod_1", ExternalPriceID: "price_1",
	}
	svc := NewPlanService(memory.NewPlanRepository(existing), NewMockGateway(testWebhookSecret))
	ctx := context.Background()

	updated, err := svc.Update(ctx, existing.ID, &domain.Plan{Name: "Premium+", Price: 2499, Interval: domain.IntervalMonth})
	require.NoError(t, err)
	assert.Equal(t, "Premium+", updated.Name)
	assert.Equal(t, int64(2499), updated.Price)
	assert.Equal(t, "price_1", updated.ExternalPriceID)

	_, err = svc.Update(ctx, "missing", &domain.Plan{Name: "x", Price: 1, Interval: domain.IntervalMonth})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, existing.ID))
	_, err = svc.Get(ctx, existing.ID)
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}
