package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

// PeriodInput overrides one period of the term layout.
type PeriodInput struct {
	Number  int  `json:"number" validate:"required,min=1,max=16"`
	IsBreak bool `json:"isBreak"`
}

// LimitsInput overrides the configured constraint limits. Zero fields keep the defaults.
type LimitsInput struct {
	MaxConsecutive  int `json:"maxConsecutive" validate:"omitempty,min=1,max=16"`
	MaxDailyLoad    int `json:"maxDailyLoad" validate:"omitempty,min=1,max=16"`
	MaxSubjectDaily int `json:"maxSubjectDaily" validate:"omitempty,min=1,max=16"`
}

// SolverOptions tunes the selected strategy.
type SolverOptions struct {
	TimeoutMs       int     `json:"timeoutMs" validate:"omitempty,min=10,max=60000"`
	PopulationSize  int     `json:"populationSize" validate:"omitempty,min=2,max=500"`
	Generations     int     `json:"generations" validate:"omitempty,min=1,max=5000"`
	MutationRate    float64 `json:"mutationRate" validate:"omitempty,gt=0,lte=1"`
	Seed            int64   `json:"seed"`
	FillFreePeriods *bool   `json:"fillFreePeriods"`
}

// GenerateTimetableRequest asks the engine for a timetable proposal of one class.
type GenerateTimetableRequest struct {
	TermID   string         `json:"termId" validate:"required"`
	ClassID  string         `json:"classId" validate:"required"`
	Strategy string         `json:"strategy" validate:"omitempty,oneof=greedy backtracking genetic"`
	Days     []int          `json:"days" validate:"omitempty,max=7,dive,min=1,max=7"`
	Periods  []PeriodInput  `json:"periods" validate:"omitempty,max=16,dive"`
	Limits   *LimitsInput   `json:"limits"`
	Options  *SolverOptions `json:"options"`
}

// TimetableProposal is a generated, not yet persisted timetable.
type TimetableProposal struct {
	ProposalID        string                      `json:"proposalId"`
	TermID            string                      `json:"termId"`
	ClassID           string                      `json:"classId"`
	Strategy          string                      `json:"strategy"`
	RequestedStrategy string                      `json:"requestedStrategy"`
	Fallback          bool                        `json:"fallback"`
	BatchID           string                      `json:"batchId,omitempty"`
	CreatedAt         time.Time                   `json:"createdAt"`
	ExpiresAt         time.Time                   `json:"expiresAt"`
	Result            *timetable.SuggestionResult `json:"result"`
}

// SaveTimetableRequest persists a proposal into semester schedules.
type SaveTimetableRequest struct {
	ProposalID    string `json:"proposalId" validate:"required"`
	CommitToDaily bool   `json:"commitToDaily"`
}

// SaveTimetableResponse identifies the stored schedule version.
type SaveTimetableResponse struct {
	ScheduleID string `json:"scheduleId"`
	Version    int    `json:"version"`
	Status     string `json:"status"`
}

// Review decisions.
const (
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// ReviewTimetableRequest records an approval decision for a draft schedule.
type ReviewTimetableRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Note     string `json:"note" validate:"max=500"`
}

// SemesterScheduleQuery filters stored schedules.
type SemesterScheduleQuery struct {
	TermID  string `form:"termId" json:"termId"`
	ClassID string `form:"classId" json:"classId"`
	Status  string `form:"status" json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

// BatchGenerateRequest generates proposals for several classes of a term at once.
// An empty class list selects every class with subject loads in the term.
type BatchGenerateRequest struct {
	TermID   string         `json:"termId" validate:"required"`
	ClassIDs []string       `json:"classIds" validate:"omitempty,max=200,dive,required"`
	Strategy string         `json:"strategy" validate:"omitempty,oneof=greedy backtracking genetic"`
	Days     []int          `json:"days" validate:"omitempty,max=7,dive,min=1,max=7"`
	Periods  []PeriodInput  `json:"periods" validate:"omitempty,max=16,dive"`
	Limits   *LimitsInput   `json:"limits"`
	Options  *SolverOptions `json:"options"`
}

// Batch lifecycle states.
const (
	BatchQueued    = "QUEUED"
	BatchRunning   = "RUNNING"
	BatchCompleted = "COMPLETED"
	BatchFailed    = "FAILED"
)

// BatchItem is the outcome for one class of a batch.
type BatchItem struct {
	ClassID      string  `json:"classId"`
	ProposalID   string  `json:"proposalId,omitempty"`
	Strategy     string  `json:"strategy,omitempty"`
	Fallback     bool    `json:"fallback,omitempty"`
	Score        float64 `json:"score"`
	UnmetPeriods int     `json:"unmetPeriods"`
	Error        string  `json:"error,omitempty"`
}

// BatchStatus reports the progress of a batch generation.
type BatchStatus struct {
	BatchID    string      `json:"batchId"`
	TermID     string      `json:"termId"`
	State      string      `json:"state"`
	Total      int         `json:"total"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Items      []BatchItem `json:"items"`
	Notes      []string    `json:"notes,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}
