// internal/models/listing.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleListing is a farmer's offer to sell a harvest quantity.
//
// Status moves OPEN -> REQUESTED -> SOLD, with REQUESTED -> OPEN on
// rejection. SOLD is terminal. Buyer fields are populated only while the
// listing is REQUESTED or SOLD; a rejection clears them together with the
// negotiated price. Listings are never deleted.
type SaleListing struct {
	BaseModel
	FarmerID uuid.UUID  `json:"farmer_id" gorm:"type:uuid;index;not null"`
	Farmer   *User      `json:"farmer,omitempty" gorm:"foreignKey:FarmerID"`
	FieldID  uuid.UUID  `json:"field_id" gorm:"type:uuid;index;not null"`
	Field    *RiceField `json:"field,omitempty" gorm:"foreignKey:FieldID"`

	QuantityTon     float64          `json:"quantity_ton" gorm:"not null"`
	PricePerTon     decimal.Decimal  `json:"price_per_ton" gorm:"type:numeric(10,2);not null"`
	NegotiatedPrice *decimal.Decimal `json:"negotiated_price,omitempty" gorm:"type:numeric(10,2)"`
	Phone           string           `json:"phone" gorm:"size:20;not null"`

	Status       ListingStatus `json:"status" gorm:"type:varchar(20);not null;default:'OPEN';index"`
	BuyerID      *uuid.UUID    `json:"buyer_id,omitempty" gorm:"type:uuid;index"`
	Buyer        *User         `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	BuyerContact *string       `json:"buyer_contact,omitempty" gorm:"size:20"`
	SoldAt       *time.Time    `json:"sold_at,omitempty"`
}
