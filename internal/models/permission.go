package models

// Permission mirrors a catalog definition in the database. The primary key is
// the dotted name (resource.action) so role bindings reference permissions by
// their stable identity rather than a surrogate id.
type Permission struct {
	BaseModel

	Resource    string `gorm:"not null;index" json:"resource"`
	Action      string `gorm:"not null" json:"action"`
	Description string `json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
