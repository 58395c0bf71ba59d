// internal/models/estimation.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// YieldEstimation is an append-only audit record of one classification run.
// One row is written per successful run, including non-rice classifications
// (where the yield is zero). Rows are never updated or deleted.
type YieldEstimation struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	FieldID           uuid.UUID  `json:"field_id" gorm:"type:uuid;index;not null"`
	Field             *RiceField `json:"field,omitempty" gorm:"foreignKey:FieldID"`
	NDVIMean          float64    `json:"ndvi_mean"`
	EstimatedYieldTon float64    `json:"estimated_yield_ton"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (e *YieldEstimation) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
