package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a delivery destination owned by a user.
type Address struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"-"`
	RecipientName string    `gorm:"column:recipient_name;not null" json:"recipientName"`
	Phone         string    `gorm:"column:phone;not null" json:"phone"`
	Line1         string    `gorm:"column:line1;not null" json:"line1"`
	Line2         *string   `gorm:"column:line2" json:"line2,omitempty"`
	City          string    `gorm:"column:city;not null" json:"city"`
	State         string    `gorm:"column:state;not null" json:"state"`
	PostalCode    string    `gorm:"column:postal_code;not null" json:"postalCode"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
