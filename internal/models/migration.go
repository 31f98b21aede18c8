package models

import "time"

// Migration categories in processing order.
const (
	CategoryAcademicYears = "academic_years"
	CategoryStudents      = "students"
	CategoryTeachers      = "teachers"
	CategoryClasses       = "classes"
	CategoryEnrollments   = "enrollments"
	CategoryFeesPerClass  = "fees_per_class"
	CategoryExtraFees     = "extra_fees"
	CategoryServices      = "services"
	CategoryPayments      = "payments"
)

// RecordOutcome is the result of importing one legacy record.
type RecordOutcome struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// CategoryReport collects the outcomes of one category.
type CategoryReport struct {
	Category   string          `json:"category"`
	SourceKey  string          `json:"source_key,omitempty"`
	Skipped    bool            `json:"skipped"`
	SkipReason string          `json:"skip_reason,omitempty"`
	Outcomes   []RecordOutcome `json:"outcomes"`
}

// Imported counts successful records.
func (c CategoryReport) Imported() int {
	n := 0
	for _, o := range c.Outcomes {
		if o.OK {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes.
func (c CategoryReport) Failed() []RecordOutcome {
	var failed []RecordOutcome
	for _, o := range c.Outcomes {
		if !o.OK {
			failed = append(failed, o)
		}
	}
	return failed
}

// MigrationReport is the full result of a migration run.
type MigrationReport struct {
	RunID         string           `json:"run_id"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	CurrentYearID string           `json:"current_year_id,omitempty"`
	Categories    []CategoryReport `json:"categories"`
}

// Category returns the report for name, or nil.
func (r *MigrationReport) Category(name string) *CategoryReport {
	if r == nil {
		return nil
	}
	for i := range r.Categories {
		if r.Categories[i].Category == name {
			return &r.Categories[i]
		}
	}
	return nil
}

// Warnings flattens every per-record failure and skipped category into
// human-readable lines.
func (r *MigrationReport) Warnings() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, c := range r.Categories {
		if c.Skipped {
			out = append(out, c.Category+": skipped: "+c.SkipReason)
			continue
		}
		for _, f := range c.Failed() {
			out = append(out, c.Category+" "+f.ID+": "+f.Reason)
		}
	}
	return out
}

// MigrationStage identifies progress checkpoints.
type MigrationStage string

// Progress checkpoints reported during a run.
const (
	StageStarting    MigrationStage = "starting"
	StageYears       MigrationStage = "academic_years"
	StageGlobals     MigrationStage = "global_entities"
	StageCurrentYear MigrationStage = "current_year_entities"
	StagePurging     MigrationStage = "purging_legacy"
	StageDone        MigrationStage = "done"
)

// ProgressFunc receives a stage and a completion percentage in [0, 100].
type ProgressFunc func(stage MigrationStage, percent int)

// BackupBundle is an ordered snapshot of the legacy store. Values are either
// parsed JSON or, when unparsable, the raw string.
type BackupBundle struct {
	CreatedAt time.Time     `json:"created_at"`
	Entries   []BackupEntry `json:"entries"`
}

// BackupEntry is one legacy key.
type BackupEntry struct {
	Key string `json:"key"`
	// Raw is true when Value is the unparsed legacy string.
	Raw   bool   `json:"raw"`
	Value string `json:"value"`
}
