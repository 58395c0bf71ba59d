// internal/services/testhelpers_test.go
package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ricelink/ricelink-backend/internal/config"
	"github.com/ricelink/ricelink-backend/internal/geo"
	"github.com/ricelink/ricelink-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A plain ":memory:" DSN gives every pool connection its own private
	// database; shared cache keeps raw Exec calls made outside the current
	// transaction's connection on the same schema.
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RiceField{},
		&models.YieldEstimation{},
		&models.SaleListing{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Geofence: config.GeofenceConfig{
			Enabled: true,
			MinLon:  99.80,
			MinLat:  19.00,
			MaxLon:  100.10,
			MaxLat:  19.35,
		},
		Imagery: config.ImageryConfig{
			LookbackDays:   60,
			CloudThreshold: 0.8,
			Scale:          10,
		},
		Classify: config.ClassifyConfig{
			WaterMax:     0,
			RoadMax:      0.30,
			YoungRiceMax: 0.45,
		},
		Yield: config.YieldConfig{
			Slope:              6.5,
			Intercept:          1.2,
			Divisor:            6.25,
			SquareMetersPerRai: 1600,
		},
		Prices: config.PriceConfig{
			PerVariety: map[string]float64{
				"KDML105": 12000,
				"RD6":     11000,
			},
			Default: 10000,
		},
	}
}

func newTestUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Role:     role,
		Phone:    "081-000-" + username,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// phayaoRing is a small paddy-sized rectangle inside the service area.
func phayaoRing(t *testing.T) geo.Polygon {
	t.Helper()

	ring, err := geo.ParsePolygon(phayaoGeometry())
	require.NoError(t, err)
	return ring
}

func phayaoGeometry() json.RawMessage {
	return json.RawMessage(`{
		"type": "Polygon",
		"coordinates": [[
			[99.900, 19.160],
			[99.902, 19.160],
			[99.902, 19.162],
			[99.900, 19.162],
			[99.900, 19.160]
		]]
	}`)
}

func newTestField(t *testing.T, db *gorm.DB, owner *models.User, name string, areaRai float64) *models.RiceField {
	t.Helper()

	field := &models.RiceField{
		OwnerID:  owner.ID,
		Name:     name,
		Boundary: phayaoRing(t),
		AreaRai:  areaRai,
		District: "Phayao",
		Variety:  models.VarietyKDML105,
		IsActive: true,
	}
	require.NoError(t, db.Create(field).Error)
	return field
}

func fieldByID(t *testing.T, db *gorm.DB, id uuid.UUID) *models.RiceField {
	t.Helper()

	var field models.RiceField
	require.NoError(t, db.First(&field, "id = ?", id).Error)
	return &field
}
