package database

import (
	"fmt"
	"log"

	"github.com/jkarani/invoicing-api/internal/config"
	"github.com/jkarani/invoicing-api/internal/domain/entity"
	"github.com/jkarani/invoicing-api/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Info

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Successfully connected to PostgreSQL database")
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		// User-related entities
		&entity.User{},
		&entity.Role{},
		&entity.Permission{},

		// Catalog and CRM entities
		&entity.Product{},
		&entity.Customer{},

		// Invoicing entities
		&entity.Invoice{},
		&entity.InvoiceLine{},

		// System entities
		&entity.IdempotencyKey{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SeedDefaultData seeds the database with default roles, permissions and an
// admin account so the console is usable on first boot
func SeedDefaultData(db *gorm.DB) error {
	log.Println("Seeding default data...")

	permissions := []entity.Permission{
		{Name: "view-dashboard", GuardName: "web"},
		{Name: "manage-products", GuardName: "web"},
		{Name: "manage-customers", GuardName: "web"},
		{Name: "manage-invoices", GuardName: "web"},
		{Name: "manage-users", GuardName: "web"},
	}

	for i := range permissions {
		var existing entity.Permission
		if err := db.Where("name = ?", permissions[i].Name).First(&existing).Error; err != nil {
			if err := db.Create(&permissions[i]).Error; err != nil {
				log.Printf("Warning: failed to create permission %s: %v", permissions[i].Name, err)
			}
		}
	}

	var allPermissions []entity.Permission
	db.Find(&allPermissions)

	// super-admin carries every permission
	var superAdminRole entity.Role
	if err := db.Where("name = ?", "super-admin").First(&superAdminRole).Error; err != nil {
		superAdminRole = entity.Role{Name: "super-admin", GuardName: "web"}
		if err := db.Create(&superAdminRole).Error; err != nil {
			return fmt.Errorf("failed to create super-admin role: %w", err)
		}
	}
	if err := db.Model(&superAdminRole).Association("Permissions").Replace(allPermissions); err != nil {
		log.Printf("Warning: failed to sync super-admin permissions: %v", err)
	}

	// default "user" role gets everything except user management
	var userRole entity.Role
	if err := db.Where("name = ?", "user").First(&userRole).Error; err != nil {
		userRole = entity.Role{Name: "user", GuardName: "web"}
		if err := db.Create(&userRole).Error; err != nil {
			return fmt.Errorf("failed to create user role: %w", err)
		}
	}
	var userPermissions []entity.Permission
	for _, p := range allPermissions {
		if p.Name != "manage-users" {
			userPermissions = append(userPermissions, p)
		}
	}
	if err := db.Model(&userRole).Association("Permissions").Replace(userPermissions); err != nil {
		log.Printf("Warning: failed to sync user permissions: %v", err)
	}

	// default admin account, local login only
	var admin entity.User
	if err := db.Where("email = ?", "admin@example.com").First(&admin).Error; err != nil {
		hash, err := utils.HashPassword("password")
		if err != nil {
			return fmt.Errorf("failed to hash default admin password: %w", err)
		}
		admin = entity.User{
			FirstName: "Default",
			LastName:  "Admin",
			Username:  "admin",
			Email:     "admin@example.com",
			Password:  hash,
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create default admin: %w", err)
		}
		if err := db.Model(&admin).Association("Roles").Append(&superAdminRole); err != nil {
			log.Printf("Warning: failed to assign super-admin role: %v", err)
		}
	}

	log.Println("Default data seeded successfully")
	return nil
}
