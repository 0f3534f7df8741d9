package models

// RecordAccessEntry grants or denies a user access to one specific resource
// instance, overriding the type-level decision for that instance only.
type RecordAccessEntry struct {
	BaseModel

	UserID       string  `gorm:"type:uuid;not null;uniqueIndex:idx_record_access,priority:1" json:"user_id"`
	User         *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ResourceType string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_record_access,priority:2" json:"resource_type"`
	ResourceID   string  `gorm:"type:varchar(128);not null;uniqueIndex:idx_record_access,priority:3" json:"resource_id"`
	Granted      bool    `gorm:"not null" json:"granted"`
	GrantedByID  *string `gorm:"type:uuid;index" json:"granted_by_id"`
}

// TableName overrides the default table name for GORM.
func (RecordAccessEntry) TableName() string {
	return "record_access_entries"
}
