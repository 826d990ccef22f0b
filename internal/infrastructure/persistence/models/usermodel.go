package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/shared/constants"
)

// UserModel is the slice of the users table the billing engine needs:
// contact details for gateway registration and notifications.
type UserModel struct {
	ID        uint   `gorm:"primarykey"`
	Email     string `gorm:"uniqueIndex;not null;size:255"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return constants.TableUsers
}
