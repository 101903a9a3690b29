package models

import "time"

// Setting is a key/value row for tenant-level knobs such as the retail
// and wholesale order minimums.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
