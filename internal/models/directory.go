package models

// Department is read-only reference data from the institutional directory.
type Department struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Course belongs to a department and is taught by zero or more lecturers.
type Course struct {
	ID           string `db:"id" json:"id"`
	DepartmentID string `db:"department_id" json:"department_id"`
	Name         string `db:"name" json:"name"`
	Code         string `db:"code" json:"code"`
}

// LecturerRef is the short lecturer form used for display and assignment.
type LecturerRef struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
}
