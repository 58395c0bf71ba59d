// internal/models/user.go
package models

// User mirrors the account record owned by the external identity service.
// We keep the role and contact details locally because listings and buy
// requests reference them, but credentials never touch this system.
type User struct {
	BaseModel
	Username string `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Role     Role   `json:"role" gorm:"type:varchar(10);not null;default:'FARMER'"`
	Phone    string `json:"phone" gorm:"size:20"`
	LineID   string `json:"line_id" gorm:"size:50"`
	Address  string `json:"address" gorm:"type:text"`

	// Relationships
	Fields []RiceField   `json:"fields,omitempty" gorm:"foreignKey:OwnerID"`
	Sales  []SaleListing `json:"sales,omitempty" gorm:"foreignKey:FarmerID"`
}
