package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/infrastructure/database"
	"github.com/seedbridge/crm-portal/pkg/config"
	pkgjwt "github.com/seedbridge/crm-portal/pkg/jwt"
)

const seedDomain = "seed.local"

type seedEntity struct {
	Type     entities.EntityType
	Name     string
	Contacts []string
}

func main() {
	log.Println("🚀 Seeding development data...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Server.Environment == "production" {
		log.Fatalf("Refusing to seed a production database")
	}

	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	jwtManager := pkgjwt.NewManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	log.Println("🗑️  Cleaning up previous seed data...")
	if err := cleanup(db); err != nil {
		log.Fatalf("Failed to clean up: %v", err)
	}

	users := []struct {
		Email string
		Name  string
		Role  entities.UserRole
	}{
		{Email: "admin@" + seedDomain, Name: "Admin", Role: entities.RoleAdmin},
		{Email: "analyst@" + seedDomain, Name: "Analyst", Role: entities.RoleTeam},
		{Email: "viewer@" + seedDomain, Name: "Viewer", Role: entities.RoleViewer},
	}

	log.Println("🔑 Creating users and tokens...")
	for _, u := range users {
		user := entities.NewUser(u.Email, u.Name)
		user.Role = u.Role
		if err := db.Create(user).Error; err != nil {
			log.Printf("❌ Failed to create user %s: %v", u.Email, err)
			continue
		}

		accessToken, err := jwtManager.GenerateAccessToken(user.ID, user.Email, string(user.Role))
		if err != nil {
			log.Printf("❌ Failed to generate access token for %s: %v", u.Email, err)
			continue
		}
		refreshToken, err := jwtManager.GenerateRefreshToken(user.ID)
		if err != nil {
			log.Printf("❌ Failed to generate refresh token for %s: %v", u.Email, err)
			continue
		}
		hashed, err := jwtManager.HashToken(refreshToken)
		if err != nil {
			log.Printf("❌ Failed to hash refresh token for %s: %v", u.Email, err)
			continue
		}
		session := entities.NewSession(user.ID, hashed, time.Now().Add(cfg.JWT.RefreshExpiry))
		if err := db.Create(session).Error; err != nil {
			log.Printf("❌ Failed to create session for %s: %v", u.Email, err)
			continue
		}

		fmt.Printf("═══════════════════════════════════════════════════════════════\n")
		fmt.Printf("Email:   %s\n", user.Email)
		fmt.Printf("User ID: %s\n", user.ID)
		fmt.Printf("Role:    %s\n", user.Role)
		fmt.Printf("\n📋 Access Token:\n%s\n", accessToken)
		fmt.Printf("\n🔄 Refresh Token:\n%s\n\n", refreshToken)
	}

	crm := []seedEntity{
		{Type: entities.EntityClient, Name: "Acme Robotics", Contacts: []string{"founder@acme-robotics.example"}},
		{Type: entities.EntityInvestor, Name: "Northwind Ventures", Contacts: []string{"partner@northwind.example"}},
		{Type: entities.EntityPartner, Name: "Harbor Legal", Contacts: []string{"counsel@harbor-legal.example"}},
	}

	log.Println("🏢 Creating CRM entities and contacts...")
	for _, se := range crm {
		entity := &entities.CRMEntity{ID: uuid.New(), Type: se.Type, Name: se.Name}
		if err := db.Create(entity).Error; err != nil {
			log.Printf("❌ Failed to create %s %s: %v", se.Type, se.Name, err)
			continue
		}
		for i, email := range se.Contacts {
			contact := &entities.Contact{ID: uuid.New(), Email: email, IsPrimary: i == 0}
			switch se.Type {
			case entities.EntityClient:
				contact.ClientID = &entity.ID
			case entities.EntityInvestor:
				contact.InvestorID = &entity.ID
			case entities.EntityPartner:
				contact.PartnerID = &entity.ID
			}
			if err := db.Create(contact).Error; err != nil {
				log.Printf("❌ Failed to create contact %s: %v", email, err)
			}
		}
		fmt.Printf("🟢 %-9s %-22s %s\n", se.Type, se.Name, entity.ID)
	}

	log.Println("✅ Seed complete")
}

func cleanup(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id IN (SELECT id FROM users WHERE email LIKE ?)", "%@"+seedDomain).
			Delete(&entities.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email LIKE ?", "%@"+seedDomain).Delete(&entities.User{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email LIKE ?", "%.example").Delete(&entities.Contact{}).Error; err != nil {
			return err
		}
		return tx.Where("name IN ?", []string{"Acme Robotics", "Northwind Ventures", "Harbor Legal"}).
			Delete(&entities.CRMEntity{}).Error
	})
}
