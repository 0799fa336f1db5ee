package models

// Person is an individual shown on the org chart. People are chart data, not
// accounts; they are unrelated to User rows.
type Person struct {
	BaseModel

	OrganizationID string        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`

	DepartmentID *string     `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`

	Name  string `gorm:"not null" json:"name"`
	Title string `json:"title"`
	Email string `gorm:"index" json:"email"`

	ReportsToID *string `gorm:"type:uuid;index" json:"reports_to_id"`
	ReportsTo   *Person `gorm:"foreignKey:ReportsToID" json:"reports_to,omitempty"`
}
