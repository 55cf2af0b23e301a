package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation records one CLI query evaluation in the history store.
type Evaluation struct {
	ID string `gorm:"primaryKey;type:varchar(20)"`

	// Query details
	Query   string `gorm:"type:text;not null"`
	Modules int    `gorm:"default:0"` // number of policy modules loaded
	V1Mode  bool   `gorm:"default:false"`
	Strict  bool   `gorm:"default:false"`

	// Checksums identifying the evaluated state
	ModulesDigest string `gorm:"type:varchar(64)"` // SHA256 over module sources
	DataDigest    string `gorm:"type:varchar(64)"` // SHA256 over data documents
	InputDigest   string `gorm:"type:varchar(64)"` // SHA256 of the input document

	// Outcome
	Result    string         `gorm:"type:text"`
	Undefined bool           `gorm:"default:false"`
	Errors    datatypes.JSON `gorm:"type:jsonb"` // error objects, when any

	// Timing
	DurationMicros int64     `gorm:"default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index"`
}
