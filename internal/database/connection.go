// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ricelink/ricelink-backend/internal/config"
	"github.com/ricelink/ricelink-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.RiceField{},
		&models.YieldEstimation{},
		&models.SaleListing{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Server-side defaults are applied here rather than in struct tags so
	// AutoMigrate stays portable to databases without gen_random_uuid.
	uuidDefaults := []string{
		"ALTER TABLE users ALTER COLUMN id SET DEFAULT gen_random_uuid()",
		"ALTER TABLE rice_fields ALTER COLUMN id SET DEFAULT gen_random_uuid()",
		"ALTER TABLE yield_estimations ALTER COLUMN id SET DEFAULT gen_random_uuid()",
		"ALTER TABLE sale_listings ALTER COLUMN id SET DEFAULT gen_random_uuid()",
	}
	for _, stmt := range uuidDefaults {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to set uuid default: %w", err)
		}
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)",
		"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",

		"CREATE INDEX IF NOT EXISTS idx_rice_fields_owner ON rice_fields(owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_rice_fields_owner_active ON rice_fields(owner_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_rice_fields_owner_name ON rice_fields(owner_id, name)",

		"CREATE INDEX IF NOT EXISTS idx_yield_estimations_field ON yield_estimations(field_id, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_sale_listings_farmer ON sale_listings(farmer_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_listings_status ON sale_listings(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sale_listings_buyer ON sale_listings(buyer_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
		}
	}

	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
