package models

import "gorm.io/datatypes"

// Organization is a tenant. CreatedByID is permanent provenance set at creation;
// ownership as tracked by memberships may move via transfer, CreatedByID never does.
type Organization struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	CreatedByID string  `gorm:"type:uuid;not null;index" json:"created_by_id"`
	CreatedBy   *User   `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Public      bool    `gorm:"default:false" json:"public"`
	ShareToken  *string `gorm:"uniqueIndex" json:"share_token,omitempty"`

	Settings datatypes.JSON `json:"settings"`

	Memberships []Membership `gorm:"foreignKey:OrganizationID" json:"memberships,omitempty"`
	Departments []Department `gorm:"foreignKey:OrganizationID" json:"departments,omitempty"`
	People      []Person     `gorm:"foreignKey:OrganizationID" json:"people,omitempty"`
}
