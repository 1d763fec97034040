package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/config"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/repository"
	"github.com/mansoorceksport/elearning-billing/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	planService := service.NewPlanService(
		repository.NewMongoPlanRepository(db),
		service.NewPaymentGateway(cfg.Stripe),
	)

	plans := []domain.Plan{
		{Name: "Mensuel", Price: 1999, Interval: domain.IntervalMonth, IntervalCount: 1, Offers: "Accès à tous les cours"},
		{Name: "Trimestriel", Price: 4999, Interval: domain.IntervalMonth, IntervalCount: 3, Offers: "Accès à tous les cours, certificats"},
		{Name: "Annuel", Price: 17999, Interval: domain.IntervalYear, IntervalCount: 1, Offers: "Accès à tous les cours, certificats, support prioritaire"},
	}

	existing, err := planService.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list plans: %v", err)
	}
	byName := make(map[string]*domain.Plan, len(existing))
	for _, p := range existing {
		byName[p.Name] = p
	}

	for _, p := range plans {
		if current, ok := byName[p.Name]; ok {
			if current.IsCheckoutReady() {
				fmt.Printf("Skipping existing: %s\n", p.Name)
				continue
			}
			if _, err := planService.ConfigureWithGateway(ctx, current.ID); err != nil {
				log.Printf("Error configuring %s: %v\n", p.Name, err)
				continue
			}
			fmt.Printf("Configured: %s\n", p.Name)
			continue
		}

		plan := p
		created, err := planService.Create(ctx, &plan)
		if err != nil {
			log.Printf("Error creating %s: %v\n", p.Name, err)
			continue
		}
		fmt.Printf("Created: %s (price %s)\n", created.Name, created.ExternalPriceID)
	}
	fmt.Println("Seeding Plans Complete.")
}
