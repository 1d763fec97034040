package service

import (
	"context"
	"fmt"
	"log"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
)

// PlanService manages the plan catalog and its gateway products
type PlanService struct {
	planRepo domain.PlanRepository
	gateway  PaymentGateway
}

func NewPlanService(planRepo domain.PlanRepository, gateway PaymentGateway) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		gateway:  gateway,
	}
}

func (s *PlanService) List(ctx context.Context) ([]*domain.Plan, error) {
	return s.planRepo.List(ctx)
}

func (s *PlanService) Get(ctx context.Context, id string) (*domain.Plan, error) {
	return s.planRepo.GetByID(ctx, id)
}

// Create stores the plan and provisions its gateway product and price.
// If provisioning fails the stored plan is returned along with the error so it
// can be configured later through ConfigureWithGateway.
func (s *PlanService) Create(ctx context.Context, plan *domain.Plan) (*domain.Plan, error) {
	if plan.Currency == "" {
		plan.Currency = domain.DefaultCurrency
	}
	if plan.IntervalCount == 0 {
		plan.IntervalCount = 1
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err)
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	log.Printf("[Plan] Created plan %s (%s)", plan.ID, plan.Name)

	if err := s.provision(ctx, plan); err != nil {
		return plan, err
	}
	return plan, nil
}

// Update replaces the catalog fields of a plan. Gateway ids are kept.
func (s *PlanService) Update(ctx context.Context, id string, input *domain.Plan) (*domain.Plan, error) {
	existing, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Price = input.Price
	existing.Offers = input.Offers
	existing.Interval = input.Interval
	if input.Currency != "" {
		existing.Currency = input.Currency
	}
	if input.IntervalCount != 0 {
		existing.IntervalCount = input.IntervalCount
	}
	if err := existing.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err)
	}

	if err := s.planRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *PlanService) Delete(ctx context.Context, id string) error {
	if err := s.planRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[Plan] Deleted plan %s", id)
	return nil
}

// ConfigureWithGateway provisions gateway ids for a plan stored without them
func (s *PlanService) ConfigureWithGateway(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.IsCheckoutReady() {
		return plan, nil
	}

	if err := s.provision(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) provision(ctx context.Context, plan *domain.Plan) error {
	price, err := s.gateway.ProvisionPrice(ctx, domain.PriceRequest{
		PlanID:        plan.ID,
		Name:          plan.Name,
		Description:   plan.Offers,
		Amount:        plan.Price,
		Currency:      plan.CurrencyOrDefault(),
		Interval:      plan.Interval,
		IntervalCount: plan.IntervalCount,
	})
	if err != nil {
		return fmt.Errorf("failed to provision plan %s: %w", plan.ID, err)
	}

	if err := s.planRepo.SetExternalIDs(ctx, plan.ID, price.ProductID, price.PriceID); err != nil {
		return err
	}
	plan.ExternalProductID = price.ProductID
	plan.ExternalPriceID = price.PriceID

	log.Printf("[Plan] Plan %s provisioned: product=%s price=%s", plan.ID, price.ProductID, price.PriceID)
	return nil
}
