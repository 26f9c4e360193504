package models

import "time"

// Discount code types. Codes of type free reduce the computed total to zero
// and route the entry through the free-entry path.
const (
	DISCOUNT_PERCENT = "percent"
	DISCOUNT_FIXED   = "fixed"
	DISCOUNT_FREE    = "free"
)

// DiscountCode is an admin-managed promo/team code.
type DiscountCode struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Code          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DiscountType  string    `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue int64     `gorm:"not null;default:0" json:"discount_value"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Apply returns the total after this discount. Percent values are clamped to
// 0..100; results never go below zero.
func (d *DiscountCode) Apply(total int64) int64 {
	switch d.DiscountType {
	case DISCOUNT_FREE:
		return 0
	case DISCOUNT_PERCENT:
		pct := d.DiscountValue
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return total - total*pct/100
	case DISCOUNT_FIXED:
		out := total - d.DiscountValue
		if out < 0 {
			out = 0
		}
		return out
	}
	return total
}
