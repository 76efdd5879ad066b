package settings

import "time"

// Preferences is the per-investor portal configuration, keyed by wallet
// address. A missing row means defaults; rows are created on first write.
type Preferences struct {
	Investor            string    `gorm:"size:42;primaryKey" json:"investor"`
	DisplayCurrency     string    `gorm:"size:8;default:USD" json:"display_currency"`
	NotifyStatusUpdates bool      `gorm:"default:true" json:"notify_status_updates"`
	Language            string    `gorm:"size:8;default:en" json:"language"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Preferences) TableName() string {
	return "investor_preferences"
}

// DefaultPreferences returns the settings applied before an investor has
// saved anything.
func DefaultPreferences(investor string) *Preferences {
	return &Preferences{
		Investor:            investor,
		DisplayCurrency:     "USD",
		NotifyStatusUpdates: true,
		Language:            "en",
	}
}

// UpdateRequest carries the editable preference fields. Pointers
// distinguish "leave unchanged" from an explicit value.
type UpdateRequest struct {
	DisplayCurrency     *string `json:"display_currency"`
	NotifyStatusUpdates *bool   `json:"notify_status_updates"`
	Language            *string `json:"language"`
}
