package models

// StoreStatus summarises the records store for status displays.
type StoreStatus struct {
	Healthy       bool          `json:"healthy"`
	CurrentYear   *AcademicYear `json:"current_year,omitempty"`
	Students      int           `json:"students"`
	Teachers      int           `json:"teachers"`
	AcademicYears int           `json:"academic_years"`
	Classes       int           `json:"classes"`
}
