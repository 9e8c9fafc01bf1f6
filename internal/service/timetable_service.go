package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

const (
	proposalKeyPrefix    = "timetable:proposal:"
	semesterListPattern  = "timetable:semester:list:*"
	defaultProposalTTL   = 30 * time.Minute
	defaultPeriodsPerDay = 8
)

type classSubjectReader interface {
	ListLoads(ctx context.Context, classID, termID string) ([]models.ClassSubjectLoad, error)
}

type timeSlotReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.TimeSlot, error)
}

type teacherPreferenceReader interface {
	ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherPreference, error)
}

type scheduleStore interface {
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.TeacherBooking, error)
	FindConflicts(ctx context.Context, exec sqlx.ExtContext, termID, classID, teacherID string, day, period int) ([]models.ScheduleConflict, error)
	DeleteByClassTerm(ctx context.Context, exec sqlx.ExtContext, termID, classID string) (int64, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error
}

type semesterScheduleRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error
	List(ctx context.Context, filter models.SemesterScheduleFilter) ([]models.SemesterSchedule, error)
	FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, termID, classID, keepID string) (int64, error)
}

type semesterScheduleSlotRepository interface {
	ReplaceForSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, slots []models.SemesterScheduleSlot) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableEngine interface {
	Solve(ctx context.Context, in timetable.Input) (*timetable.SuggestionResult, error)
}

// TimetableConfig governs generation defaults.
type TimetableConfig struct {
	ProposalTTL      time.Duration
	DefaultStrategy  string
	Timeout          time.Duration
	PopulationSize   int
	Generations      int
	MutationRate     float64
	Seed             int64
	Days             []int
	PeriodsPerDay    int
	BreakPeriods     []int
	FillFreePeriods  bool
	FallbackToGreedy bool
	Limits           timetable.ConstraintLimits
}

// TimetableService loads the catalog and bookings of a class, runs the engine and
// persists accepted proposals as semester schedules.
type TimetableService struct {
	loads         classSubjectReader
	timeSlots     timeSlotReader
	schedules     scheduleStore
	prefs         teacherPreferenceReader
	semesters     semesterScheduleRepository
	semesterSlots semesterScheduleSlotRepository
	tx            txProvider
	engine        timetableEngine
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           TimetableConfig
	proposals     *ttlStore[dto.TimetableProposal]
	now           func() time.Time
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	loads classSubjectReader,
	timeSlots timeSlotReader,
	schedules scheduleStore,
	prefs teacherPreferenceReader,
	semesters semesterScheduleRepository,
	semesterSlots semesterScheduleSlotRepository,
	tx txProvider,
	engine timetableEngine,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	log *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if engine == nil {
		engine = timetable.New(log)
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = defaultProposalTTL
	}
	if cfg.PeriodsPerDay <= 0 {
		cfg.PeriodsPerDay = defaultPeriodsPerDay
	}
	cfg.Limits = cfg.Limits.WithDefaults()
	return &TimetableService{
		loads:         loads,
		timeSlots:     timeSlots,
		schedules:     schedules,
		prefs:         prefs,
		semesters:     semesters,
		semesterSlots: semesterSlots,
		tx:            tx,
		engine:        engine,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        log.With(zap.String("service", "timetable")),
		cfg:           cfg,
		proposals:     newTTLStore[dto.TimetableProposal](proposalKeyPrefix, cfg.ProposalTTL, cache),
		now:           time.Now,
	}
}

// generationParams are the per-request knobs shared by single and batch generation.
type generationParams struct {
	Strategy string
	Days     []int
	Periods  []dto.PeriodInput
	Limits   *dto.LimitsInput
	Options  *dto.SolverOptions
}

// solveSnapshot is everything that stays fixed across the classes of one generation.
// The busy set is read-only and shared by concurrent solves.
type solveSnapshot struct {
	termID   string
	strategy timetable.Strategy
	days     []timetable.Day
	periods  []timetable.Period
	limits   timetable.ConstraintLimits
	options  timetable.Options
	busy     *timetable.BusySet
}

// Generate builds a timetable proposal for one class and keeps it for later saving.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableProposal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	catalog, err := s.catalog(ctx, req.ClassID, req.TermID)
	if err != nil {
		return nil, err
	}
	params := generationParams{Strategy: req.Strategy, Days: req.Days, Periods: req.Periods, Limits: req.Limits, Options: req.Options}
	snap, err := s.snapshot(ctx, req.TermID, []string{req.ClassID}, catalogTeachers(catalog), params)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, snap, req.ClassID, catalog, "")
}

// GetProposal returns a proposal that has not expired yet.
func (s *TimetableService) GetProposal(ctx context.Context, id string) (*dto.TimetableProposal, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposal id is required")
	}
	proposal, ok, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable proposal")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return &proposal, nil
}

// Save persists a proposal as a new semester schedule version and optionally commits it
// to the daily schedules, replacing the class's previous commitment.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, err := s.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Result == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal has no result")
	}
	if proposal.Result.HasHardViolations() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal contains hard constraint violations").
			WithDetails(proposal.Result.Violations)
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	record, err := s.persist(ctx, tx, proposal, req.CommitToDaily)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
	}

	log := logger.FromContext(ctx, s.logger)
	if err := s.proposals.Delete(ctx, proposal.ProposalID); err != nil {
		log.Warn("failed to drop saved proposal", zap.String("proposal_id", proposal.ProposalID), zap.Error(err))
	}
	s.invalidateLists(ctx)
	log.Info("timetable saved",
		zap.String("schedule_id", record.ID),
		zap.String("class_id", record.ClassID),
		zap.Int("version", record.Version),
		zap.String("status", string(record.Status)))

	return &dto.SaveTimetableResponse{ScheduleID: record.ID, Version: record.Version, Status: string(record.Status)}, nil
}

func (s *TimetableService) persist(ctx context.Context, tx *sqlx.Tx, proposal *dto.TimetableProposal, commit bool) (*models.SemesterSchedule, error) {
	result := proposal.Result
	meta, err := json.Marshal(scheduleMeta{
		ProposalID:        proposal.ProposalID,
		RequestedStrategy: proposal.RequestedStrategy,
		Fallback:          proposal.Fallback,
		GeneratedAt:       result.GeneratedAt,
		Filled:            result.FilledPeriods,
		Free:              result.FreePeriods,
		Unmet:             result.UnmetSubjectPeriods,
		ConflictsResolved: result.ConflictsResolved,
		Metrics:           result.Metrics,
		Violations:        result.Violations,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
	}

	record := &models.SemesterSchedule{
		TermID:   proposal.TermID,
		ClassID:  proposal.ClassID,
		Status:   models.SemesterScheduleStatusDraft,
		Strategy: proposal.Strategy,
		Score:    result.OptimizationScore,
		Meta:     types.JSONText(meta),
	}
	if err := s.semesters.CreateVersioned(ctx, tx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester schedule")
	}

	placed := result.Slots()
	slots := make([]models.SemesterScheduleSlot, 0, len(placed))
	for _, slot := range placed {
		if slot.Free() {
			continue
		}
		slots = append(slots, models.SemesterScheduleSlot{
			DayOfWeek: int(slot.Day),
			Period:    slot.PeriodNumber,
			SubjectID: slot.SubjectID,
			TeacherID: slot.TeacherID,
		})
	}
	if err := s.semesterSlots.ReplaceForSchedule(ctx, tx, record.ID, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist semester schedule slots")
	}

	if !commit {
		return record, nil
	}

	if _, err := s.schedules.DeleteByClassTerm(ctx, tx, record.TermID, record.ClassID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous daily schedules")
	}
	var conflicts []models.ScheduleConflict
	for _, slot := range slots {
		found, err := s.schedules.FindConflicts(ctx, tx, record.TermID, record.ClassID, slot.TeacherID, slot.DayOfWeek, slot.Period)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
		}
		conflicts = append(conflicts, found...)
	}
	if len(conflicts) > 0 {
		conflictErr := &models.ScheduleConflictError{Message: "detected conflicts when committing to daily schedules", Conflicts: conflicts}
		return nil, appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "timetable conflicts with committed schedules").
			WithDetails(conflicts)
	}

	semesterID := record.ID
	daily := make([]models.Schedule, 0, len(slots))
	for _, slot := range slots {
		daily = append(daily, models.Schedule{
			TermID:             record.TermID,
			ClassID:            record.ClassID,
			SubjectID:          slot.SubjectID,
			TeacherID:          slot.TeacherID,
			DayOfWeek:          slot.DayOfWeek,
			Period:             slot.Period,
			SemesterScheduleID: &semesterID,
		})
	}
	if err := s.schedules.BulkCreateWithTx(ctx, tx, daily); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit daily schedules")
	}
	if _, err := s.semesters.ArchivePublished(ctx, tx, record.TermID, record.ClassID, record.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous schedules")
	}
	if err := s.semesters.UpdateStatus(ctx, tx, record.ID, models.SemesterScheduleStatusPublished, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
	}
	record.Status = models.SemesterScheduleStatusPublished
	return record, nil
}

// Review applies an approval decision to a draft schedule. Approval publishes the
// version and archives the previously published one; rejection archives it.
func (s *TimetableService) Review(ctx context.Context, scheduleID, reviewerID string, req dto.ReviewTimetableRequest) (*models.SemesterSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	record, err := s.findSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.SemesterScheduleStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only draft schedules can be reviewed")
	}

	meta, err := withReview(record.Meta, models.SemesterScheduleReview{
		Decision:   req.Decision,
		Note:       req.Note,
		ReviewerID: reviewerID,
		ReviewedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode review metadata")
	}
	status := models.SemesterScheduleStatusArchived
	if req.Decision == dto.ReviewApproved {
		status = models.SemesterScheduleStatusPublished
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if status == models.SemesterScheduleStatusPublished {
		if _, err := s.semesters.ArchivePublished(ctx, tx, record.TermID, record.ClassID, record.ID); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous schedules")
		}
	}
	if err := s.semesters.UpdateStatus(ctx, tx, record.ID, status, meta); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit review")
	}

	s.invalidateLists(ctx)
	record.Status = status
	record.Meta = meta
	logger.FromContext(ctx, s.logger).Info("timetable reviewed",
		zap.String("schedule_id", record.ID),
		zap.String("decision", req.Decision),
		zap.String("reviewer_id", reviewerID))
	return record, nil
}

// List returns stored schedule versions. The boolean reports a cache hit.
func (s *TimetableService) List(ctx context.Context, query dto.SemesterScheduleQuery) ([]models.SemesterSchedule, bool, error) {
	if query.TermID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule query")
	}

	key := fmt.Sprintf("timetable:semester:list:%s:%s:%s", query.TermID, query.ClassID, query.Status)
	var cached []models.SemesterSchedule
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	list, err := s.semesters.List(ctx, models.SemesterScheduleFilter{
		TermID:  query.TermID,
		ClassID: query.ClassID,
		Status:  models.SemesterScheduleStatus(query.Status),
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedules")
	}
	_ = s.cache.Set(ctx, key, list, 0)
	return list, false, nil
}

// GetSlots returns slot detail for a stored schedule.
func (s *TimetableService) GetSlots(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	if _, err := s.findSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	slots, err := s.semesterSlots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semester schedule slots")
	}
	return slots, nil
}

// Delete removes a draft schedule version.
func (s *TimetableService) Delete(ctx context.Context, scheduleID string) error {
	record, err := s.findSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if record.Status != models.SemesterScheduleStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft schedules can be deleted")
	}
	if err := s.semesters.Delete(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester schedule")
	}
	s.invalidateLists(ctx)
	return nil
}

func (s *TimetableService) findSchedule(ctx context.Context, scheduleID string) (*models.SemesterSchedule, error) {
	if strings.TrimSpace(scheduleID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	record, err := s.semesters.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedule")
	}
	return record, nil
}

func (s *TimetableService) invalidateLists(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, semesterListPattern)
}

// catalog loads the subject demand of a class. Every load must have a teacher.
func (s *TimetableService) catalog(ctx context.Context, classID, termID string) ([]timetable.CatalogRow, error) {
	loads, err := s.loads.ListLoads(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subject loads")
	}
	if len(loads) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("class %s has no subject loads for this term", classID))
	}

	rows := make([]timetable.CatalogRow, 0, len(loads))
	var unassigned []string
	for _, load := range loads {
		if !load.Assigned() {
			unassigned = append(unassigned, load.SubjectCode)
			continue
		}
		row := timetable.CatalogRow{
			SubjectID:      load.SubjectID,
			Code:           load.SubjectCode,
			Name:           load.SubjectName,
			Credits:        load.Credits,
			PeriodsPerWeek: load.PeriodsPerWeek,
			TeacherID:      *load.TeacherID,
		}
		if load.TeacherName != nil {
			row.TeacherName = *load.TeacherName
		}
		rows = append(rows, row)
	}
	if len(unassigned) > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("class %s has subjects without an assigned teacher: %s", classID, strings.Join(unassigned, ", ")))
	}
	return rows, nil
}

func (s *TimetableService) snapshot(ctx context.Context, termID string, classIDs, teacherIDs []string, params generationParams) (*solveSnapshot, error) {
	strategyName := params.Strategy
	if strategyName == "" {
		strategyName = s.cfg.DefaultStrategy
	}
	strategy, err := timetable.ParseStrategy(strategyName)
	if err != nil {
		return nil, s.mapEngineError(ctx, err)
	}

	dayIndexes := params.Days
	if len(dayIndexes) == 0 {
		dayIndexes = s.cfg.Days
	}
	days := make([]timetable.Day, 0, len(dayIndexes))
	for _, day := range dayIndexes {
		days = append(days, timetable.Day(day))
	}

	periods, err := s.periods(ctx, termID, params.Periods)
	if err != nil {
		return nil, err
	}
	busy, err := s.busySet(ctx, termID, teacherIDs, classIDs)
	if err != nil {
		return nil, err
	}

	return &solveSnapshot{
		termID:   termID,
		strategy: strategy,
		days:     days,
		periods:  periods,
		limits:   s.limits(params.Limits),
		options:  s.options(params.Options),
		busy:     busy,
	}, nil
}

func (s *TimetableService) limits(override *dto.LimitsInput) timetable.ConstraintLimits {
	limits := s.cfg.Limits
	if override == nil {
		return limits
	}
	return limits.Merge(&timetable.ConstraintLimits{
		MaxConsecutive:  override.MaxConsecutive,
		MaxDailyLoad:    override.MaxDailyLoad,
		MaxSubjectDaily: override.MaxSubjectDaily,
	})
}

func (s *TimetableService) options(override *dto.SolverOptions) timetable.Options {
	opts := timetable.Options{
		Timeout:         s.cfg.Timeout,
		PopulationSize:  s.cfg.PopulationSize,
		Generations:     s.cfg.Generations,
		MutationRate:    s.cfg.MutationRate,
		Seed:            s.cfg.Seed,
		FillFreePeriods: s.cfg.FillFreePeriods,
	}
	if override == nil {
		return opts
	}
	if override.TimeoutMs > 0 {
		opts.Timeout = time.Duration(override.TimeoutMs) * time.Millisecond
	}
	if override.PopulationSize > 0 {
		opts.PopulationSize = override.PopulationSize
	}
	if override.Generations > 0 {
		opts.Generations = override.Generations
	}
	if override.MutationRate > 0 {
		opts.MutationRate = override.MutationRate
	}
	if override.Seed != 0 {
		opts.Seed = override.Seed
	}
	if override.FillFreePeriods != nil {
		opts.FillFreePeriods = *override.FillFreePeriods
	}
	return opts
}

// periods resolves the day layout: request override, then the term's time slots, then configuration.
func (s *TimetableService) periods(ctx context.Context, termID string, override []dto.PeriodInput) ([]timetable.Period, error) {
	if len(override) > 0 {
		periods := make([]timetable.Period, 0, len(override))
		for _, p := range override {
			periods = append(periods, timetable.Period{Number: p.Number, IsBreak: p.IsBreak})
		}
		return periods, nil
	}
	if s.timeSlots != nil {
		slots, err := s.timeSlots.ListByTerm(ctx, termID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
		}
		if len(slots) > 0 {
			periods := make([]timetable.Period, 0, len(slots))
			for _, slot := range slots {
				periods = append(periods, timetable.Period{Number: slot.PeriodNumber, IsBreak: slot.IsBreak})
			}
			return periods, nil
		}
	}
	breaks := make(map[int]bool, len(s.cfg.BreakPeriods))
	for _, p := range s.cfg.BreakPeriods {
		breaks[p] = true
	}
	periods := make([]timetable.Period, 0, s.cfg.PeriodsPerDay)
	for n := 1; n <= s.cfg.PeriodsPerDay; n++ {
		periods = append(periods, timetable.Period{Number: n, IsBreak: breaks[n]})
	}
	return periods, nil
}

// busySet snapshots the committed bookings of the given teachers, ignoring the classes
// being regenerated, plus each teacher's declared unavailable windows.
func (s *TimetableService) busySet(ctx context.Context, termID string, teacherIDs, excludeClassIDs []string) (*timetable.BusySet, error) {
	if len(teacherIDs) == 0 {
		return timetable.NewBusySet(nil), nil
	}
	var entries []timetable.BusyEntry
	if s.schedules != nil {
		bookings, err := s.schedules.ListBookings(ctx, repository.BookingFilter{
			TermID:          termID,
			TeacherIDs:      teacherIDs,
			ExcludeClassIDs: excludeClassIDs,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher bookings")
		}
		for _, booking := range bookings {
			entries = append(entries, timetable.BusyEntry{
				TeacherID: booking.TeacherID,
				Day:       timetable.Day(booking.DayOfWeek),
				Period:    booking.Period,
			})
		}
	}

	if s.prefs != nil {
		prefs, err := s.prefs.ListByTeachers(ctx, teacherIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher preferences")
		}
		for _, pref := range prefs {
			if len(pref.Unavailable) == 0 {
				continue
			}
			var windows []models.TeacherUnavailableSlot
			if err := json.Unmarshal(pref.Unavailable, &windows); err != nil {
				s.logger.Warn("ignoring malformed unavailable windows", zap.String("teacher_id", pref.TeacherID), zap.Error(err))
				continue
			}
			for _, window := range windows {
				day := timetable.ParseDay(window.DayOfWeek)
				if day == 0 {
					continue
				}
				for _, period := range expandPeriodRange(window.Periods) {
					entries = append(entries, timetable.BusyEntry{TeacherID: pref.TeacherID, Day: day, Period: period})
				}
			}
		}
	}
	return timetable.NewBusySet(entries), nil
}

func (s *TimetableService) generate(ctx context.Context, snap *solveSnapshot, classID string, catalog []timetable.CatalogRow, batchID string) (*dto.TimetableProposal, error) {
	log := logger.FromContext(ctx, s.logger).With(zap.String("class_id", classID), zap.String("term_id", snap.termID))
	input := timetable.Input{
		ClassID:  classID,
		Catalog:  catalog,
		Days:     snap.days,
		Periods:  snap.periods,
		Busy:     snap.busy,
		Limits:   &snap.limits,
		Strategy: snap.strategy,
		Options:  snap.options,
		Now:      s.now,
	}

	started := time.Now()
	result, err := s.engine.Solve(ctx, input)
	used, fallback := snap.strategy, false
	if err != nil && s.shouldFallback(err, snap.strategy) {
		log.Warn("strategy found no solution, retrying with greedy", zap.String("strategy", string(snap.strategy)), zap.Error(err))
		input.Strategy = timetable.StrategyGreedy
		used, fallback = timetable.StrategyGreedy, true
		result, err = s.engine.Solve(ctx, input)
	}
	s.observeSolve(used, fallback, time.Since(started), result, err)
	if err != nil {
		return nil, s.mapEngineError(ctx, err)
	}

	now := s.now().UTC()
	proposal := dto.TimetableProposal{
		ProposalID:        uuid.NewString(),
		TermID:            snap.termID,
		ClassID:           classID,
		Strategy:          string(used),
		RequestedStrategy: string(snap.strategy),
		Fallback:          fallback,
		BatchID:           batchID,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.ProposalTTL),
		Result:            result,
	}
	if err := s.proposals.Put(ctx, proposal.ProposalID, proposal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable proposal")
	}

	log.Info("timetable proposal generated",
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("strategy", proposal.Strategy),
		zap.Bool("fallback", fallback),
		zap.Float64("score", result.OptimizationScore),
		zap.Int("unmet", result.UnmetSubjectPeriods),
		zap.Int("violations", len(result.Violations)))
	return &proposal, nil
}

func (s *TimetableService) shouldFallback(err error, strategy timetable.Strategy) bool {
	if !s.cfg.FallbackToGreedy || strategy == timetable.StrategyGreedy {
		return false
	}
	var noSolution *timetable.NoSolutionError
	if !errors.As(err, &noSolution) {
		return false
	}
	return noSolution.Reason != timetable.NoSolutionCanceled
}

func (s *TimetableService) observeSolve(strategy timetable.Strategy, fallback bool, elapsed time.Duration, result *timetable.SuggestionResult, err error) {
	obs := SolveObservation{Strategy: string(strategy), Duration: elapsed, Fallback: fallback}
	switch {
	case err == nil:
		obs.Outcome = SolveOutcomeOK
		obs.Score = result.OptimizationScore
		obs.Unmet = result.UnmetSubjectPeriods
		obs.Violations = make(map[string]int)
		obs.Severities = make(map[string]string)
		for _, v := range result.Violations {
			obs.Violations[v.Kind]++
			obs.Severities[v.Kind] = string(v.Severity)
		}
	case errors.Is(err, timetable.ErrNoSolution):
		obs.Outcome = SolveOutcomeNoSolution
	case errors.Is(err, timetable.ErrInvalidInput):
		obs.Outcome = SolveOutcomeInvalid
	default:
		obs.Outcome = SolveOutcomeError
	}
	s.metrics.ObserveSolve(obs)
}

// mapEngineError turns engine failures into API errors.
func (s *TimetableService) mapEngineError(ctx context.Context, err error) error {
	var noSolution *timetable.NoSolutionError
	switch {
	case errors.Is(err, timetable.ErrInvalidInput):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.TrimPrefix(err.Error(), "timetable: "))
	case errors.As(err, &noSolution) && noSolution.Reason == timetable.NoSolutionCanceled,
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "timetable generation was cancelled")
	case errors.Is(err, timetable.ErrNoSolution):
		return appErrors.Wrap(err, appErrors.ErrNoSolution.Code, appErrors.ErrNoSolution.Status, appErrors.ErrNoSolution.Message)
	default:
		logger.FromContext(ctx, s.logger).Error("timetable engine failure", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed")
	}
}

type scheduleMeta struct {
	ProposalID        string                   `json:"proposal_id"`
	RequestedStrategy string                   `json:"requested_strategy"`
	Fallback          bool                     `json:"fallback"`
	GeneratedAt       time.Time                `json:"generated_at"`
	Filled            int                      `json:"filled"`
	Free              int                      `json:"free"`
	Unmet             int                      `json:"unmet"`
	ConflictsResolved int                      `json:"conflicts_resolved"`
	Metrics           timetable.QualityMetrics `json:"metrics"`
	Violations        []timetable.Violation    `json:"violations"`
}

func withReview(raw types.JSONText, review models.SemesterScheduleReview) (types.JSONText, error) {
	meta := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
	}
	meta["review"] = review
	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return types.JSONText(encoded), nil
}

func catalogTeachers(rows []timetable.CatalogRow) []string {
	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.TeacherID]; ok {
			continue
		}
		seen[row.TeacherID] = struct{}{}
		ids = append(ids, row.TeacherID)
	}
	sort.Strings(ids)
	return ids
}

// expandPeriodRange parses "3" or an inclusive range "2-4".
func expandPeriodRange(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		start := parsePeriod(parts[0])
		end := parsePeriod(parts[1])
		if start == 0 || end == 0 || end < start {
			return nil
		}
		periods := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			periods = append(periods, p)
		}
		return periods
	}
	if value := parsePeriod(raw); value > 0 {
		return []int{value}
	}
	return nil
}

func parsePeriod(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return 0
	}
	return value
}
