package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeCash         Type = "cash"
	TypePOS          Type = "pos"
	TypeBankTransfer Type = "bank_transfer"
	TypeMobileMoney  Type = "mobile_money"
	TypeCheque       Type = "cheque"
)

// DefaultRequiredFields lists the payment details each type must carry.
var DefaultRequiredFields = map[Type][]string{
	TypeCash:         {},
	TypePOS:          {"reference_number"},
	TypeBankTransfer: {"reference_number", "bank_name"},
	TypeMobileMoney:  {"reference_number", "phone_number"},
	TypeCheque:       {"cheque_number", "bank_name"},
}

type PaymentMethod struct {
	ID             snowflake.ID                `json:"id" gorm:"primaryKey"`
	OwnerID        snowflake.ID                `json:"owner_id" gorm:"not null;uniqueIndex:ux_payment_methods_owner_code,priority:1"`
	Code           string                      `json:"code" gorm:"type:text;not null;uniqueIndex:ux_payment_methods_owner_code,priority:2"`
	Name           string                      `json:"name" gorm:"type:text;not null"`
	Type           Type                        `json:"type" gorm:"type:text;not null"`
	RequiredFields datatypes.JSONSlice[string] `json:"required_fields" gorm:"type:json"`
	Active         bool                        `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time                   `json:"updated_at" gorm:"not null"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
