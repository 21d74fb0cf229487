package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"telegram-prediction-backend/internal/config"
	"telegram-prediction-backend/internal/domain/model"
	pg "telegram-prediction-backend/internal/infra/db/postgres"
)

func ptr[T any](v T) *T { return &v }

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	dev := flag.Bool("dev", false, "development mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *dev)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	productRepo := pg.NewProductRepo(pool)

	existing, err := productRepo.ListAll(ctx, nil)
	if err != nil {
		log.Fatalf("list products: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d products already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s (%s)\n", p.Slug, p.Type)
		}
		return
	}

	incLimit := func(n int64) []model.Effect {
		return []model.Effect{{Target: "request_limit", Type: model.EffectInc, Value: n}}
	}

	// The request-quota ladder plus the daily quota reset. Prices in Stars;
	// daily_requests_reset carries no price, it is computed from the buyer's
	// current quota at invoice time.
	seed := []*model.Product{
		{
			Slug:        "daily_requests_reset",
			Name:        "Сброс лимита запросов",
			Description: "Мгновенно обновляет ваш дневной лимит запросов.",
			Type:        model.ProductTypeDaily,
			Effects: []model.Effect{
				{Target: "request_count", Type: model.EffectReset},
			},
		},
		{
			Slug:        "plus_ten_requests",
			Name:        "+10 запросов",
			Description: "Навсегда увеличивает дневной лимит на 10 запросов.",
			Type:        model.ProductTypeLadder,
			Price:       ptr[int64](50),
			Next:        ptr("plus_twenty_requests"),
			Effects:     incLimit(10),
		},
		{
			Slug:        "plus_twenty_requests",
			Name:        "+20 запросов",
			Description: "Навсегда увеличивает дневной лимит на 20 запросов.",
			Type:        model.ProductTypeLadder,
			Price:       ptr[int64](90),
			Prev:        ptr("plus_ten_requests"),
			Next:        ptr("plus_fifty_requests"),
			Effects:     incLimit(20),
		},
		{
			Slug:        "plus_fifty_requests",
			Name:        "+50 запросов",
			Description: "Навсегда увеличивает дневной лимит на 50 запросов.",
			Type:        model.ProductTypeLadder,
			Price:       ptr[int64](200),
			Prev:        ptr("plus_twenty_requests"),
			Next:        ptr("plus_one_hundred_requests"),
			Effects:     incLimit(50),
		},
		{
			Slug:        "plus_one_hundred_requests",
			Name:        "+100 запросов",
			Description: "Навсегда увеличивает дневной лимит на 100 запросов.",
			Type:        model.ProductTypeLadder,
			Price:       ptr[int64](380),
			Prev:        ptr("plus_fifty_requests"),
			Next:        ptr("plus_two_hundred_requests"),
			Effects:     incLimit(100),
		},
		{
			Slug:        "plus_two_hundred_requests",
			Name:        "+200 запросов",
			Description: "Навсегда увеличивает дневной лимит на 200 запросов.",
			Type:        model.ProductTypeLadder,
			Price:       ptr[int64](700),
			Prev:        ptr("plus_one_hundred_requests"),
			Next:        ptr("plus_five_hundred_requests"),
			Effects:     incLimit(200),
		},
		{
			Slug:        "plus_five_hundred_requests",
			Name:        "+500 запросов",
			Description: "Навсегда увеличивает дневной лимит на 500 запросов.",
			Type:        model.ProductTypeLadder,
			Price:       ptr[int64](1600),
			Prev:        ptr("plus_two_hundred_requests"),
			Next:        ptr("plus_one_thousand_requests"),
			Effects:     incLimit(500),
		},
		{
			Slug:        "plus_one_thousand_requests",
			Name:        "+1000 запросов",
			Description: "Навсегда увеличивает дневной лимит на 1000 запросов.",
			Type:        model.ProductTypeLadder,
			Price:       ptr[int64](3000),
			Prev:        ptr("plus_five_hundred_requests"),
			Effects:     incLimit(1000),
		},
	}

	for _, p := range seed {
		p.ID = uuid.NewString()
		if err := productRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("seed %q: %v", p.Slug, err)
		}
		fmt.Printf("seeded: %s (id=%s)\n", p.Slug, p.ID)
	}

	fmt.Println("✅ Seeding complete.")
}
