package models

// AccessLevel constrains which actions a member may perform inside a parish,
// regardless of what their roles or overrides grant generically.
type AccessLevel string

const (
	AccessFull     AccessLevel = "full"
	AccessReadOnly AccessLevel = "readonly"
	AccessLimited  AccessLevel = "limited"
)

// Valid reports whether the access level is one of the known values.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessFull, AccessReadOnly, AccessLimited:
		return true
	}
	return false
}

// ParishMembership records that a user may operate within a parish.
type ParishMembership struct {
	BaseModel

	UserID   string  `gorm:"type:uuid;not null;uniqueIndex:idx_membership_user_parish,priority:1" json:"user_id"`
	User     *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParishID string  `gorm:"type:uuid;not null;uniqueIndex:idx_membership_user_parish,priority:2" json:"parish_id"`
	Parish   *Parish `gorm:"foreignKey:ParishID" json:"parish,omitempty"`

	AccessLevel AccessLevel `gorm:"type:varchar(16);not null;default:'full'" json:"access_level"`

	// IsPrimary marks the default parish scope for the user. Uniqueness is
	// not enforced at the schema level; readers resolve duplicates by
	// picking the lowest parish id.
	IsPrimary bool `gorm:"default:false" json:"is_primary"`
}

// TableName overrides the default table name for GORM.
func (ParishMembership) TableName() string {
	return "parish_memberships"
}
