package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestTimetableServiceGenerateSuccess(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{})

	proposal, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.NoError(t, err)
	require.NotNil(t, proposal.Result)
	assert.NotEmpty(t, proposal.ProposalID)
	assert.Equal(t, "greedy", proposal.Strategy)
	assert.False(t, proposal.Fallback)
	assert.Equal(t, 4, proposal.Result.FilledPeriods)
	assert.Zero(t, proposal.Result.UnmetSubjectPeriods)
	assert.Equal(t, proposal.CreatedAt.Add(time.Hour), proposal.ExpiresAt)

	stored, err := fx.service.GetProposal(context.Background(), proposal.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, proposal.ProposalID, stored.ProposalID)
}

func TestTimetableServiceGenerateValidation(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{})

	_, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a", Strategy: "simulated-annealing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateRequiresAssignedTeachers(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{
		loads: map[string][]models.ClassSubjectLoad{
			"class-10a": {
				load("math", "MTK", "t1", 2),
				{ClassID: "class-10a", SubjectID: "art", SubjectCode: "SBD", Credits: 2, PeriodsPerWeek: 2},
			},
		},
	})

	_, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "SBD")

	_, err = fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-unknown"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateHonoursBookingsAndPreferences(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{
		bookings: []models.TeacherBooking{
			{TeacherID: "t1", ClassID: "class-11b", DayOfWeek: 1, Period: 1},
			{TeacherID: "t1", ClassID: "class-11b", DayOfWeek: 1, Period: 2},
		},
		preferences: []models.TeacherPreference{
			preference("t1", models.TeacherUnavailableSlot{DayOfWeek: "MONDAY", Periods: "3-4"}),
		},
	})

	proposal, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.NoError(t, err)
	for _, slot := range proposal.Result.Slots() {
		if slot.TeacherID == "t1" {
			assert.NotEqual(t, timetable.Monday, slot.Day, "t1 is unavailable all Monday")
		}
	}
	assert.Equal(t, []string{"class-10a"}, fx.schedules.lastFilter.ExcludeClassIDs)
	assert.Equal(t, []string{"t1", "t2"}, fx.schedules.lastFilter.TeacherIDs)
}

func TestTimetableServiceGenerateFallsBackToGreedy(t *testing.T) {
	loads := map[string][]models.ClassSubjectLoad{"class-10a": {load("math", "MTK", "t1", 5)}}
	req := dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a", Strategy: "backtracking", Days: []int{1}}

	strict := newTimetableFixture(t, timetableFixtureConfig{loads: loads})
	_, err := strict.service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSolution.Code, appErrors.FromError(err).Code)

	lenient := newTimetableFixture(t, timetableFixtureConfig{loads: loads, fallback: true})
	proposal, err := lenient.service.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, proposal.Fallback)
	assert.Equal(t, "greedy", proposal.Strategy)
	assert.Equal(t, "backtracking", proposal.RequestedStrategy)
	assert.Positive(t, proposal.Result.UnmetSubjectPeriods)
}

func TestTimetableServiceProposalExpires(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{})
	proposal, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.NoError(t, err)

	fx.service.proposals.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = fx.service.GetProposal(context.Background(), proposal.ProposalID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceProposalsUseCacheWhenEnabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	fx := newTimetableFixture(t, timetableFixtureConfig{cache: NewCacheService(repo, nil, time.Minute, nil, true)})

	proposal, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.NoError(t, err)
	assert.True(t, repo.has(proposalKeyPrefix+proposal.ProposalID))

	stored, err := fx.service.GetProposal(context.Background(), proposal.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, proposal.Result.FilledPeriods, stored.Result.FilledPeriods)
}

func TestTimetableServiceSaveDraft(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, timetableFixtureConfig{tx: tx})
	proposal, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := fx.service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: proposal.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, "sched-1", resp.ScheduleID)
	assert.Equal(t, 1, resp.Version)
	assert.Equal(t, string(models.SemesterScheduleStatusDraft), resp.Status)
	assert.Len(t, fx.slots.items["sched-1"], 4)
	assert.Empty(t, fx.schedules.created)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = fx.service.GetProposal(context.Background(), proposal.ProposalID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code, "saved proposals are consumed")
}

func TestTimetableServiceSaveCommitsToDaily(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, timetableFixtureConfig{tx: tx})
	proposal, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := fx.service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: proposal.ProposalID, CommitToDaily: true})
	require.NoError(t, err)
	assert.Equal(t, string(models.SemesterScheduleStatusPublished), resp.Status)
	assert.Equal(t, []string{"term-1/class-10a"}, fx.schedules.cleared)
	require.Len(t, fx.schedules.created, 4)
	for _, schedule := range fx.schedules.created {
		require.NotNil(t, schedule.SemesterScheduleID)
		assert.Equal(t, "sched-1", *schedule.SemesterScheduleID)
	}
	assert.Equal(t, []string{"sched-1"}, fx.semesters.archivedKeep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceSaveConflictRollsBack(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, timetableFixtureConfig{
		tx:        tx,
		conflicts: []models.ScheduleConflict{{ScheduleID: "daily-9", ClassID: "class-11b", TeacherID: "t1", Dimension: "TEACHER"}},
	})
	proposal, err := fx.service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", ClassID: "class-10a"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = fx.service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: proposal.ProposalID, CommitToDaily: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	var conflictErr *models.ScheduleConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.NotEmpty(t, conflictErr.Conflicts)
	assert.Equal(t, conflictErr.Conflicts, appErrors.FromError(err).Details)
	assert.Empty(t, fx.schedules.created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceSaveUnknownProposal(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{})

	_, err := fx.service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceReview(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTimetableFixture(t, timetableFixtureConfig{tx: tx})
	fx.semesters.items = []models.SemesterSchedule{
		{ID: "sched-1", TermID: "term-1", ClassID: "class-10a", Version: 1, Status: models.SemesterScheduleStatusDraft, Meta: types.JSONText(`{"filled":4}`)},
		{ID: "sched-2", TermID: "term-1", ClassID: "class-10a", Version: 2, Status: models.SemesterScheduleStatusDraft},
	}

	mock.ExpectBegin()
	mock.ExpectCommit()
	approved, err := fx.service.Review(context.Background(), "sched-1", "admin-1", dto.ReviewTimetableRequest{Decision: dto.ReviewApproved, Note: "looks good"})
	require.NoError(t, err)
	assert.Equal(t, models.SemesterScheduleStatusPublished, approved.Status)
	assert.Equal(t, []string{"sched-1"}, fx.semesters.archivedKeep)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(approved.Meta, &meta))
	assert.EqualValues(t, 4, meta["filled"])
	review, ok := meta["review"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "admin-1", review["reviewer_id"])

	mock.ExpectBegin()
	mock.ExpectCommit()
	rejected, err := fx.service.Review(context.Background(), "sched-2", "admin-1", dto.ReviewTimetableRequest{Decision: dto.ReviewRejected})
	require.NoError(t, err)
	assert.Equal(t, models.SemesterScheduleStatusArchived, rejected.Status)

	_, err = fx.service.Review(context.Background(), "sched-1", "admin-1", dto.ReviewTimetableRequest{Decision: dto.ReviewRejected})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = fx.service.Review(context.Background(), "sched-2", "admin-1", dto.ReviewTimetableRequest{Decision: "MAYBE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceListUsesCache(t *testing.T) {
	repo := newMemoryCacheRepo()
	fx := newTimetableFixture(t, timetableFixtureConfig{cache: NewCacheService(repo, nil, time.Minute, nil, true)})
	fx.semesters.items = []models.SemesterSchedule{{ID: "sched-1", TermID: "term-1", ClassID: "class-10a", Version: 1, Status: models.SemesterScheduleStatusDraft}}

	query := dto.SemesterScheduleQuery{TermID: "term-1"}
	first, hit, err := fx.service.List(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, first, 1)

	second, hit, err := fx.service.List(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first[0].ID, second[0].ID)

	require.NoError(t, fx.service.Delete(context.Background(), "sched-1"))
	_, hit, err = fx.service.List(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit, "delete invalidates cached lists")

	_, _, err = fx.service.List(context.Background(), dto.SemesterScheduleQuery{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGetSlotsAndDelete(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{})
	fx.semesters.items = []models.SemesterSchedule{
		{ID: "sched-1", TermID: "term-1", ClassID: "class-10a", Status: models.SemesterScheduleStatusPublished},
	}
	fx.slots.items = map[string][]models.SemesterScheduleSlot{
		"sched-1": {{ID: "slot-1", SemesterScheduleID: "sched-1", DayOfWeek: 1, Period: 1, SubjectID: "math", TeacherID: "t1"}},
	}

	slots, err := fx.service.GetSlots(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	_, err = fx.service.GetSlots(context.Background(), "sched-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = fx.service.Delete(context.Background(), "sched-1")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code, "published schedules cannot be deleted")
}

func TestTimetableServiceMapEngineError(t *testing.T) {
	fx := newTimetableFixture(t, timetableFixtureConfig{})
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"invalid input", fmt.Errorf("periods: %w", timetable.ErrInvalidInput), appErrors.ErrValidation.Code},
		{"exhausted", &timetable.NoSolutionError{Strategy: timetable.StrategyBacktracking, Reason: timetable.NoSolutionExhausted}, appErrors.ErrNoSolution.Code},
		{"search deadline", &timetable.NoSolutionError{Strategy: timetable.StrategyBacktracking, Reason: timetable.NoSolutionDeadline}, appErrors.ErrNoSolution.Code},
		{"search canceled", &timetable.NoSolutionError{Strategy: timetable.StrategyBacktracking, Reason: timetable.NoSolutionCanceled}, appErrors.ErrServiceUnavailable.Code},
		{"context deadline", context.DeadlineExceeded, appErrors.ErrServiceUnavailable.Code},
		{"unexpected", errors.New("boom"), appErrors.ErrInternal.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := appErrors.FromError(fx.service.mapEngineError(context.Background(), tc.err))
			assert.Equal(t, tc.code, mapped.Code)
		})
	}
}

func TestExpandPeriodRange(t *testing.T) {
	assert.Equal(t, []int{3}, expandPeriodRange("3"))
	assert.Equal(t, []int{2, 3, 4}, expandPeriodRange(" 2-4 "))
	assert.Nil(t, expandPeriodRange(""))
	assert.Nil(t, expandPeriodRange("4-2"))
	assert.Nil(t, expandPeriodRange("x"))
	assert.Nil(t, expandPeriodRange("0"))
}

// --- Fixtures ---

type timetableFixtureConfig struct {
	loads       map[string][]models.ClassSubjectLoad
	bookings    []models.TeacherBooking
	conflicts   []models.ScheduleConflict
	preferences []models.TeacherPreference
	tx          txProvider
	cache       *CacheService
	fallback    bool
}

type timetableFixture struct {
	service   *TimetableService
	schedules *scheduleStoreStub
	semesters *semesterScheduleRepoStub
	slots     *semesterScheduleSlotRepoStub
}

func newTimetableFixture(t *testing.T, cfg timetableFixtureConfig) *timetableFixture {
	t.Helper()
	loads := cfg.loads
	if loads == nil {
		loads = map[string][]models.ClassSubjectLoad{
			"class-10a": {load("math", "MTK", "t1", 2), load("bio", "BIO", "t2", 2)},
			"class-10b": {load("chem", "KIM", "t1", 2), load("phys", "FIS", "t3", 2)},
		}
	}
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}
	fx := &timetableFixture{
		schedules: &scheduleStoreStub{bookings: cfg.bookings, conflicts: cfg.conflicts},
		semesters: &semesterScheduleRepoStub{},
		slots:     &semesterScheduleSlotRepoStub{},
	}
	fx.service = NewTimetableService(
		classSubjectStub{loads: loads},
		timeSlotStub{},
		fx.schedules,
		preferenceStub{items: cfg.preferences},
		fx.semesters,
		fx.slots,
		tx,
		timetable.New(zap.NewNop()),
		cfg.cache,
		NewMetricsService(),
		validator.New(),
		zap.NewNop(),
		TimetableConfig{
			ProposalTTL:      time.Hour,
			DefaultStrategy:  "greedy",
			Timeout:          time.Second,
			Seed:             42,
			Days:             []int{1, 2},
			PeriodsPerDay:    4,
			FallbackToGreedy: cfg.fallback,
		},
	)
	return fx
}

func load(subjectID, code, teacherID string, periods int) models.ClassSubjectLoad {
	name := "Teacher " + teacherID
	return models.ClassSubjectLoad{
		SubjectID:      subjectID,
		SubjectCode:    code,
		SubjectName:    code,
		Credits:        2,
		PeriodsPerWeek: periods,
		TeacherID:      &teacherID,
		TeacherName:    &name,
	}
}

func preference(teacherID string, windows ...models.TeacherUnavailableSlot) models.TeacherPreference {
	payload, _ := json.Marshal(windows)
	return models.TeacherPreference{TeacherID: teacherID, Unavailable: payload}
}

type classSubjectStub struct {
	loads map[string][]models.ClassSubjectLoad
}

func (s classSubjectStub) ListLoads(ctx context.Context, classID, termID string) ([]models.ClassSubjectLoad, error) {
	return s.loads[classID], nil
}

func (s classSubjectStub) ListClassIDsByTerm(ctx context.Context, termID string) ([]string, error) {
	ids := make([]string, 0, len(s.loads))
	for id := range s.loads {
		ids = append(ids, id)
	}
	return ids, nil
}

type timeSlotStub struct{}

func (timeSlotStub) ListByTerm(ctx context.Context, termID string) ([]models.TimeSlot, error) {
	return nil, nil
}

type preferenceStub struct {
	items []models.TeacherPreference
}

func (s preferenceStub) ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherPreference, error) {
	return s.items, nil
}

type scheduleStoreStub struct {
	mu         sync.Mutex
	bookings   []models.TeacherBooking
	conflicts  []models.ScheduleConflict
	lastFilter repository.BookingFilter
	cleared    []string
	created    []models.Schedule
}

func (s *scheduleStoreStub) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.TeacherBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	return s.bookings, nil
}

func (s *scheduleStoreStub) FindConflicts(ctx context.Context, exec sqlx.ExtContext, termID, classID, teacherID string, day, period int) ([]models.ScheduleConflict, error) {
	var out []models.ScheduleConflict
	for _, conflict := range s.conflicts {
		if conflict.TeacherID == teacherID {
			out = append(out, conflict)
		}
	}
	return out, nil
}

func (s *scheduleStoreStub) DeleteByClassTerm(ctx context.Context, exec sqlx.ExtContext, termID, classID string) (int64, error) {
	s.cleared = append(s.cleared, termID+"/"+classID)
	return 0, nil
}

func (s *scheduleStoreStub) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error {
	s.created = append(s.created, schedules...)
	return nil
}

type semesterScheduleRepoStub struct {
	items        []models.SemesterSchedule
	archivedKeep []string
}

func (s *semesterScheduleRepoStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error {
	schedule.ID = uuidString(len(s.items) + 1)
	schedule.Version = len(s.items) + 1
	s.items = append(s.items, *schedule)
	return nil
}

func (s *semesterScheduleRepoStub) List(ctx context.Context, filter models.SemesterScheduleFilter) ([]models.SemesterSchedule, error) {
	var out []models.SemesterSchedule
	for _, item := range s.items {
		if item.TermID != filter.TermID {
			continue
		}
		if filter.ClassID != "" && item.ClassID != filter.ClassID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *semesterScheduleRepoStub) FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error) {
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *semesterScheduleRepoStub) Delete(ctx context.Context, id string) error {
	for idx, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *semesterScheduleRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error {
	for idx := range s.items {
		if s.items[idx].ID == id {
			s.items[idx].Status = status
			if meta != nil {
				s.items[idx].Meta = meta
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *semesterScheduleRepoStub) ArchivePublished(ctx context.Context, exec sqlx.ExtContext, termID, classID, keepID string) (int64, error) {
	s.archivedKeep = append(s.archivedKeep, keepID)
	var archived int64
	for idx := range s.items {
		item := &s.items[idx]
		if item.TermID == termID && item.ClassID == classID && item.ID != keepID && item.Status == models.SemesterScheduleStatusPublished {
			item.Status = models.SemesterScheduleStatusArchived
			archived++
		}
	}
	return archived, nil
}

type semesterScheduleSlotRepoStub struct {
	items map[string][]models.SemesterScheduleSlot
}

func (s *semesterScheduleSlotRepoStub) ReplaceForSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, slots []models.SemesterScheduleSlot) error {
	if s.items == nil {
		s.items = make(map[string][]models.SemesterScheduleSlot)
	}
	for idx := range slots {
		slots[idx].SemesterScheduleID = scheduleID
	}
	s.items[scheduleID] = slots
	return nil
}

func (s *semesterScheduleSlotRepoStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	return s.items[scheduleID], nil
}

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	payload, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = payload
	m.mu.Unlock()
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.items, key)
		}
	}
	return nil
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func uuidString(v int) string {
	return fmt.Sprintf("sched-%d", v)
}
