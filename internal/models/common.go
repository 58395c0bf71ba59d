// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID client-side. Keeping ID generation out of
// the DDL lets the models run on databases without gen_random_uuid
// (the test setup runs on sqlite).
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Enums

// Role is the actor role handed to us by the external identity service.
// We trust it as given; no role management happens here.
type Role string

const (
	RoleFarmer Role = "FARMER"
	RoleMiller Role = "MILLER"
	RoleGovt   Role = "GOVT"
	RoleAdmin  Role = "ADMIN"
)

type RiceVariety string

const (
	VarietyKDML105 RiceVariety = "KDML105" // Hom Mali 105
	VarietyRD6     RiceVariety = "RD6"     // RD6 sticky rice
	VarietyRD15    RiceVariety = "RD15"
	VarietyPathum1 RiceVariety = "PATHUM1" // Pathum Thani 1
	VarietyOther   RiceVariety = "OTHER"
)

func (v RiceVariety) Valid() bool {
	switch v {
	case VarietyKDML105, VarietyRD6, VarietyRD15, VarietyPathum1, VarietyOther:
		return true
	}
	return false
}

// VarietyDisplayNames maps variety codes to the labels used on dashboards.
var VarietyDisplayNames = map[RiceVariety]string{
	VarietyKDML105: "Hom Mali 105",
	VarietyRD6:     "RD6 (sticky)",
	VarietyRD15:    "RD15",
	VarietyPathum1: "Pathum Thani 1",
	VarietyOther:   "Other",
}

type ListingStatus string

const (
	ListingStatusOpen      ListingStatus = "OPEN"
	ListingStatusRequested ListingStatus = "REQUESTED"
	ListingStatusSold      ListingStatus = "SOLD"
)

// LandCover is the classification result for a field boundary.
type LandCover string

const (
	LandCoverWater      LandCover = "water"
	LandCoverBuilding   LandCover = "building"
	LandCoverRoad       LandCover = "road"
	LandCoverYoungRice  LandCover = "young_rice"
	LandCoverMatureRice LandCover = "mature_rice"
)
