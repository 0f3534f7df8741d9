package models

// PermissionOverride is a per-user explicit grant or deny of one permission,
// independent of role membership. At most one override exists per
// (user, permission) pair; Granted=false is an explicit deny.
type PermissionOverride struct {
	BaseModel

	UserID       string `gorm:"type:uuid;not null;uniqueIndex:idx_override_user_permission,priority:1" json:"user_id"`
	User         *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PermissionID string `gorm:"type:varchar(128);not null;uniqueIndex:idx_override_user_permission,priority:2" json:"permission_id"`
	Granted      bool   `gorm:"not null" json:"granted"`
}

// TableName overrides the default table name for GORM.
func (PermissionOverride) TableName() string {
	return "permission_overrides"
}
