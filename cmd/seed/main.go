package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"creative-ai-studio/internal/config"
	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	pg "creative-ai-studio/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	accountRepo := pg.NewPostgresAccountRepo(pool)

	// Sample accounts across the plan tiers for local testing.
	seed := []struct {
		Email     string
		Name      string
		ImagePlan model.ImagePlan
		VideoPlan model.VideoPlan
		Images    int
		Videos    int
	}{
		{"free@example.com", "Free Tester", model.ImagePlanFree, model.VideoPlanFree, 2, 0},
		{"starter@example.com", "Starter Tester", model.ImagePlanStarter, model.VideoPlanFree, 50, 0},
		{"pro@example.com", "Pro Tester", model.ImagePlanPro, model.VideoPlanStarter, 200, 20},
	}

	for _, s := range seed {
		if _, err := accountRepo.FindByEmail(ctx, nil, s.Email); err == nil {
			fmt.Printf("exists: %s. No changes.\n", s.Email)
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.Fatalf("lookup %q: %v", s.Email, err)
		}

		acc, err := model.NewAccount("", s.Email, s.Name)
		if err != nil {
			log.Fatalf("new account %q: %v", s.Email, err)
		}
		acc.Plan = model.UserPlan{ImagePlan: s.ImagePlan, VideoPlan: s.VideoPlan}
		acc.Balance = model.CreditBalance{ImageCredits: s.Images, VideoCredits: s.Videos}

		if err := accountRepo.Save(ctx, nil, acc); err != nil {
			log.Fatalf("save account %q: %v", s.Email, err)
		}
		fmt.Printf("seeded: %s (id=%s, image_plan=%s, video_plan=%s, credits=%d/%d)\n",
			acc.Email, acc.ID, acc.Plan.ImagePlan, acc.Plan.VideoPlan,
			acc.Balance.ImageCredits, acc.Balance.VideoCredits)
	}

	fmt.Println("✅ Seeding complete.")
}
