package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

const (
	batchKeyPrefix = "timetable:batch:"
	batchJobType   = "timetable.batch"

	// batchIsolationNote is reported with every batch: classes share one booking snapshot
	// and cannot see each other's placements.
	batchIsolationNote = "classes in a batch are solved against the same booking snapshot; a teacher shared by several classes may be double-booked until the proposals are committed"
)

type classIDLister interface {
	ListClassIDsByTerm(ctx context.Context, termID string) ([]string, error)
}

// BatchConfig sizes the batch worker.
type BatchConfig struct {
	Workers     int
	Buffer      int
	Retries     int
	Concurrency int
	StatusTTL   time.Duration
}

type batchJob struct {
	BatchID  string
	ClassIDs []string
	Request  dto.BatchGenerateRequest
}

// BatchService generates proposals for many classes of a term in the background.
type BatchService struct {
	timetable *TimetableService
	classes   classIDLister
	queue     *jobs.Queue[batchJob]
	statuses  *ttlStore[dto.BatchStatus]
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       BatchConfig
	now       func() time.Time
}

// NewBatchService wires the batch queue. Call Start before enqueueing.
func NewBatchService(
	timetableSvc *TimetableService,
	classes classIDLister,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	log *zap.Logger,
	cfg BatchConfig,
) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	svc := &BatchService{
		timetable: timetableSvc,
		classes:   classes,
		statuses:  newTTLStore[dto.BatchStatus](batchKeyPrefix, cfg.StatusTTL, cache),
		metrics:   metrics,
		validator: validate,
		logger:    log.With(zap.String("service", "timetable_batch")),
		cfg:       cfg,
		now:       time.Now,
	}
	svc.queue = jobs.NewQueue[batchJob]("timetable-batch", svc.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.Buffer,
		MaxRetries: cfg.Retries,
		Logger:     log,
	})
	svc.queue.OnGiveUp(svc.giveUp)
	return svc
}

// Start launches the queue workers.
func (s *BatchService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *BatchService) Stop() {
	s.queue.Stop()
}

// Enqueue validates a batch request and schedules it. The returned status is QUEUED.
func (s *BatchService) Enqueue(ctx context.Context, req dto.BatchGenerateRequest) (*dto.BatchStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch generation payload")
	}
	classIDs := uniqueIDs(req.ClassIDs)
	if len(classIDs) == 0 {
		ids, err := s.classes.ListClassIDsByTerm(ctx, req.TermID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes for term")
		}
		classIDs = uniqueIDs(ids)
	}
	if len(classIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "term has no classes with subject loads")
	}

	status := dto.BatchStatus{
		BatchID:   uuid.NewString(),
		TermID:    req.TermID,
		State:     dto.BatchQueued,
		Total:     len(classIDs),
		Items:     []dto.BatchItem{},
		Notes:     []string{batchIsolationNote},
		CreatedAt: s.now().UTC(),
	}
	if err := s.statuses.Put(ctx, status.BatchID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store batch status")
	}
	job := jobs.Job[batchJob]{
		ID:      status.BatchID,
		Type:    batchJobType,
		Payload: batchJob{BatchID: status.BatchID, ClassIDs: classIDs, Request: req},
	}
	if err := s.queue.Enqueue(job); err != nil {
		_ = s.statuses.Delete(ctx, status.BatchID)
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "batch queue unavailable")
	}

	logger.FromContext(ctx, s.logger).Info("timetable batch queued",
		zap.String("batch_id", status.BatchID),
		zap.String("term_id", req.TermID),
		zap.Int("classes", len(classIDs)),
		zap.Int("queue_depth", s.queue.Depth()))
	return &status, nil
}

// Status returns the progress of a batch.
func (s *BatchService) Status(ctx context.Context, batchID string) (*dto.BatchStatus, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch id is required")
	}
	status, ok, err := s.statuses.Get(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch status")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found or expired")
	}
	return &status, nil
}

// batchRun accumulates per-class outcomes while classes are solved concurrently.
// Each outcome is stored while the lock is held so progress is written in order.
type batchRun struct {
	mu     sync.Mutex
	status dto.BatchStatus
	index  map[string]int
	store  func(dto.BatchStatus)
}

func (r *batchRun) record(item dto.BatchItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Items[r.index[item.ClassID]] = item
	if item.Error == "" {
		r.status.Succeeded++
	} else {
		r.status.Failed++
	}
	if r.store != nil {
		r.store(r.snapshot())
	}
}

func (r *batchRun) snapshot() dto.BatchStatus {
	out := r.status
	out.Items = append([]dto.BatchItem(nil), r.status.Items...)
	return out
}

func (s *BatchService) process(ctx context.Context, job jobs.Job[batchJob]) error {
	payload := job.Payload
	log := s.logger.With(zap.String("batch_id", payload.BatchID), zap.Int("attempt", job.Attempt+1))

	status, ok, err := s.statuses.Get(ctx, payload.BatchID)
	if err != nil {
		return fmt.Errorf("load batch status: %w", err)
	}
	if !ok {
		log.Warn("batch status expired before processing")
		return nil
	}

	started := s.now().UTC()
	status.State = dto.BatchRunning
	status.StartedAt = &started
	status.Succeeded, status.Failed = 0, 0
	status.Items = make([]dto.BatchItem, len(payload.ClassIDs))
	run := &batchRun{
		status: status,
		index:  make(map[string]int, len(payload.ClassIDs)),
		store:  func(current dto.BatchStatus) { s.putStatus(ctx, current, log) },
	}
	for i, classID := range payload.ClassIDs {
		run.index[classID] = i
		run.status.Items[i] = dto.BatchItem{ClassID: classID}
	}
	s.putStatus(ctx, run.snapshot(), log)

	catalogs := make(map[string][]timetable.CatalogRow, len(payload.ClassIDs))
	var teacherIDs []string
	for _, classID := range payload.ClassIDs {
		catalog, err := s.timetable.catalog(ctx, classID, payload.Request.TermID)
		if err != nil {
			run.record(dto.BatchItem{ClassID: classID, Error: appErrors.FromError(err).Message})
			s.metrics.ObserveBatchClass(false)
			continue
		}
		catalogs[classID] = catalog
		teacherIDs = append(teacherIDs, catalogTeachers(catalog)...)
	}

	req := payload.Request
	params := generationParams{Strategy: req.Strategy, Days: req.Days, Periods: req.Periods, Limits: req.Limits, Options: req.Options}
	snap, err := s.timetable.snapshot(ctx, req.TermID, payload.ClassIDs, uniqueIDs(teacherIDs), params)
	if err != nil {
		return fmt.Errorf("snapshot bookings: %w", err)
	}
	log.Info("timetable batch started",
		zap.Int("classes", len(payload.ClassIDs)),
		zap.Int("busy_entries", snap.busy.Len()),
		zap.String("strategy", string(snap.strategy)))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Concurrency)
	for _, classID := range payload.ClassIDs {
		catalog, ok := catalogs[classID]
		if !ok {
			continue
		}
		classID := classID
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			item := dto.BatchItem{ClassID: classID}
			proposal, err := s.timetable.generate(groupCtx, snap, classID, catalog, payload.BatchID)
			if err != nil {
				item.Error = appErrors.FromError(err).Message
			} else {
				item.ProposalID = proposal.ProposalID
				item.Strategy = proposal.Strategy
				item.Fallback = proposal.Fallback
				item.Score = proposal.Result.OptimizationScore
				item.UnmetPeriods = proposal.Result.UnmetSubjectPeriods
			}
			s.metrics.ObserveBatchClass(item.Error == "")
			run.record(item)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}

	finished := s.now().UTC()
	final := run.snapshot()
	final.State = dto.BatchCompleted
	final.FinishedAt = &finished
	s.putStatus(ctx, final, log)
	log.Info("timetable batch completed",
		zap.Int("succeeded", final.Succeeded),
		zap.Int("failed", final.Failed),
		zap.Duration("elapsed", finished.Sub(started)),
		zap.String("limitation", batchIsolationNote))
	return nil
}

func (s *BatchService) giveUp(job jobs.Job[batchJob], err error) {
	ctx := context.Background()
	status, ok, loadErr := s.statuses.Get(ctx, job.Payload.BatchID)
	if loadErr != nil || !ok {
		s.logger.Error("cannot mark batch failed", zap.String("batch_id", job.Payload.BatchID), zap.Error(errors.Join(err, loadErr)))
		return
	}
	finished := s.now().UTC()
	status.State = dto.BatchFailed
	status.Error = err.Error()
	status.FinishedAt = &finished
	s.putStatus(ctx, status, s.logger)
}

func (s *BatchService) putStatus(ctx context.Context, status dto.BatchStatus, log *zap.Logger) {
	if err := s.statuses.Put(ctx, status.BatchID, status); err != nil {
		log.Warn("failed to store batch status", zap.Error(err))
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
