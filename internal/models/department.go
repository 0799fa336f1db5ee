package models

// Department is a node in an organization's hierarchy tree. ParentID is nil for
// top-level departments.
type Department struct {
	BaseModel

	OrganizationID string        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`

	ParentID *string     `gorm:"type:uuid;index" json:"parent_id"`
	Parent   *Department `gorm:"foreignKey:ParentID" json:"parent,omitempty"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`

	Children []Department `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	People   []Person     `gorm:"foreignKey:DepartmentID" json:"people,omitempty"`
}
