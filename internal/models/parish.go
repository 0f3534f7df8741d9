package models

import "gorm.io/datatypes"

// Parish is the tenant unit. Business entities belong to exactly one parish;
// the authorization layer only cares about membership and access levels.
type Parish struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings"`

	Memberships []ParishMembership `gorm:"foreignKey:ParishID" json:"memberships,omitempty"`
}
