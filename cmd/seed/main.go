package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/schema"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/database"
	"ticketing/internal/tiers"
	"ticketing/internal/users"
	"ticketing/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Seeder struct {
	db  *database.DB
	cfg *config.Config
}

func main() {
	fmt.Println("🌱 Starting ticketing seeder...")
	_ = godotenv.Load()

	cfg := config.Load()
	db, err := database.InitDB(cfg, logger.GetDefault(), schema.Models()...)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, cfg: cfg}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates every engine table, dependents first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"checkins",
		"processor_events",
		"order_timeline",
		"tickets",
		"orders",
		"holds",
		"ticket_tiers",
		"events",
		"profiles",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds profiles, one upcoming event, and its tiers
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	profiles, err := s.SeedProfiles()
	if err != nil {
		return fmt.Errorf("failed to seed profiles: %w", err)
	}

	eventID, err := s.SeedEvent(profiles["admin"].ID)
	if err != nil {
		return fmt.Errorf("failed to seed event: %w", err)
	}

	if err := s.SeedTiers(eventID); err != nil {
		return fmt.Errorf("failed to seed tiers: %w", err)
	}

	// catalog entries for the truncated events must not outlive them
	if rdb := s.db.GetRedisClient(); rdb != nil {
		iter := rdb.Scan(ctx, 0, constants.CACHE_PREFIX+":*", 100).Iterator()
		for iter.Next(ctx) {
			rdb.Del(ctx, iter.Val())
		}
		if err := iter.Err(); err != nil {
			log.Printf("Warning: failed to clear Redis cache: %v", err)
		}
	}

	fmt.Println("\n  🔑 Development access tokens (24h):")
	for _, key := range []string{"admin", "scanner", "fan"} {
		token, err := s.devToken(profiles[key])
		if err != nil {
			return fmt.Errorf("failed to sign token for %s: %w", key, err)
		}
		fmt.Printf("    %-8s %s\n", key, token)
	}
	return nil
}

func (s *Seeder) SeedProfiles() (map[string]users.Profile, error) {
	fmt.Println("  👤 Seeding profiles...")

	data := []struct {
		key  string
		name string
		mail string
		role users.Role
	}{
		{"admin", "Box Office", "admin@example.com", users.RoleAdmin},
		{"scanner", "North Gate", "door@example.com", users.RoleScanner},
		{"fan", "Ada Lovelace", "ada@example.com", users.RoleUser},
	}

	out := make(map[string]users.Profile, len(data))
	for _, d := range data {
		p := users.Profile{ID: uuid.New(), DisplayName: d.name, Email: d.mail, Role: d.role}
		if err := s.db.PostgreSQL.Create(&p).Error; err != nil {
			return nil, fmt.Errorf("failed to create profile %s: %w", d.mail, err)
		}
		out[d.key] = p
		fmt.Printf("    ✅ Created profile: %s (%s)\n", p.Email, p.Role)
	}
	return out, nil
}

func (s *Seeder) SeedEvent(adminID uuid.UUID) (uuid.UUID, error) {
	fmt.Println("  🎤 Seeding event...")

	startsAt := time.Now().UTC().Add(14 * 24 * time.Hour).Truncate(time.Hour)
	event := events.Event{
		ID:        uuid.New(),
		Name:      "Harbor Lights Festival",
		Venue:     "Pier 70",
		StartsAt:  startsAt,
		EndsAt:    startsAt.Add(6 * time.Hour),
		CreatedBy: adminID,
	}
	if err := s.db.PostgreSQL.Create(&event).Error; err != nil {
		return uuid.Nil, err
	}
	fmt.Printf("    ✅ Created event: %s (%s)\n", event.Name, event.ID)
	return event.ID, nil
}

func (s *Seeder) SeedTiers(eventID uuid.UUID) error {
	fmt.Println("  🎟️  Seeding tiers...")

	now := time.Now().UTC()
	data := []struct {
		name     string
		price    int64
		quantity int
		perOrder int
	}{
		{"General Admission", 4500, 500, 6},
		{"VIP Deck", 15000, 40, 2},
		{"Community Preview", 0, 100, 2},
	}

	for _, d := range data {
		tier := tiers.TicketTier{
			ID:            uuid.New(),
			EventID:       eventID,
			Name:          d.name,
			UnitPrice:     d.price,
			Currency:      "usd",
			QuantityTotal: d.quantity,
			MaxPerOrder:   d.perOrder,
			SaleStartsAt:  now,
			SaleEndsAt:    now.Add(13 * 24 * time.Hour),
		}
		if err := s.db.PostgreSQL.Create(&tier).Error; err != nil {
			return fmt.Errorf("failed to create tier %s: %w", d.name, err)
		}
		fmt.Printf("    ✅ Created tier: %s (%d × %d¢)\n", tier.Name, tier.QuantityTotal, tier.UnitPrice)
	}
	return nil
}

// devToken signs an access token the JWT middleware accepts
func (s *Seeder) devToken(p users.Profile) (string, error) {
	claims := jwt.MapClaims{
		"type":    "access",
		"user_id": p.ID.String(),
		"email":   p.Email,
		"role":    string(p.Role),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
}
