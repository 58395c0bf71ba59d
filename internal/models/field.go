// internal/models/field.go
package models

import (
	"github.com/google/uuid"

	"github.com/ricelink/ricelink-backend/internal/geo"
)

// RiceField is a farmer-registered paddy with a validated boundary.
// AreaRai is always recomputed from the boundary at creation time and is
// never accepted from the client. A field with IsActive=false is in the
// trash: excluded from every yield and listing operation but restorable.
type RiceField struct {
	BaseModel
	OwnerID  uuid.UUID   `json:"owner_id" gorm:"type:uuid;index;not null"`
	Owner    *User       `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name     string      `json:"name" gorm:"size:100;not null"`
	Boundary geo.Polygon `json:"boundary" gorm:"type:jsonb;not null"`
	AreaRai  float64     `json:"area_rai"`
	District string      `json:"district" gorm:"size:100;default:'Phayao'"`
	Variety  RiceVariety `json:"variety" gorm:"type:varchar(20);default:'KDML105'"`
	IsActive bool        `json:"is_active" gorm:"not null;default:true;index"`

	Estimations []YieldEstimation `json:"estimations,omitempty" gorm:"foreignKey:FieldID"`
}
