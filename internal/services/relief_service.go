package services

import (
	"context"
	"time"

	"example.com/pacific/relief/internal/cache"
	"example.com/pacific/relief/internal/metrics"
	"example.com/pacific/relief/internal/models"
	"example.com/pacific/relief/internal/repositories"
	"example.com/pacific/relief/internal/tracing"
	"example.com/pacific/relief/internal/validation"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Notification types published after a successful write
const (
	NotificationEventCreated   = "event.created"
	NotificationRequestCreated = "request.created"
	NotificationRequestUpdated = "request.updated"
)

const reindexBatchSize = 200

// defaultCacheTTL bounds how long lists under a retired version linger
const defaultCacheTTL = time.Minute

// timestampNow returns the current UTC time at millisecond precision, which
// every supported driver stores without rounding
func timestampNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Cache stores list results between writes. Fills are conditional on a
// version counter that every invalidation bumps, so a list read before a
// write commits is never cached after it.
type Cache interface {
	Enabled() bool
	Get(ctx context.Context, key string, value interface{}) error
	Version(ctx context.Context, versionKey string) (int64, error)
	SetIfVersion(ctx context.Context, versionKey string, version int64, key string, value interface{}, expiration time.Duration) error
	Invalidate(ctx context.Context, versionKey string) error
}

// Indexer writes requests to the search index
type Indexer interface {
	Enabled() bool
	IndexRequest(ctx context.Context, request *models.Request, event *models.Event) error
	BulkIndexRequests(ctx context.Context, requests []models.Request, events map[string]*models.Event) error
}

// Publisher sends change notifications
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ReliefService handles event and request business logic. Side effects on
// the cache, search index and message bus run only after a commit and never
// fail the call.
type ReliefService struct {
	store     *repositories.Store
	cache     Cache
	indexer   Indexer
	publisher Publisher
	tracer    tracing.Tracer
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewReliefService creates a new relief service. cache, indexer and
// publisher may be nil.
func NewReliefService(
	store *repositories.Store,
	cache Cache,
	indexer Indexer,
	publisher Publisher,
	tracer tracing.Tracer,
	cacheTTL time.Duration,
) *ReliefService {
	if tracer == nil {
		tracer = tracing.Disabled()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &ReliefService{
		store:     store,
		cache:     cache,
		indexer:   indexer,
		publisher: publisher,
		tracer:    tracer,
		cacheTTL:  cacheTTL,
		now:       timestampNow,
	}
}

// ListEvents returns every event
func (s *ReliefService) ListEvents(ctx context.Context) ([]models.Event, error) {
	seg := s.tracer.StartSegment(ctx, "ListEvents")
	defer seg.End()

	versionKey := cache.GetEventsVersionKey()
	var events []models.Event
	version, hit := s.cacheGet(ctx, versionKey, cache.GetEventsCacheKey, &events)
	if hit {
		return events, nil
	}

	events, err := s.store.Events.List(ctx)
	if err != nil {
		s.tracer.RecordError(ctx, err)
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}

	s.cacheSet(ctx, versionKey, version, cache.GetEventsCacheKey(version), events)
	return events, nil
}

// CreateEvent validates and stores a new event
func (s *ReliefService) CreateEvent(ctx context.Context, input models.EventInput) (*models.Event, error) {
	seg := s.tracer.StartSegment(ctx, "CreateEvent")
	defer seg.End()

	if err := s.validate(validation.ValidateStruct(input)); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.EventStatusPlanned
	}

	now := s.now()
	event := &models.Event{
		Name:      input.Name,
		Region:    input.Region,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Events.Create(ctx, event); err != nil {
		s.tracer.RecordError(ctx, err)
		return nil, err
	}

	metrics.EventsCreatedTotal.Inc()
	log.Info().Str("event_id", event.ID).Str("region", event.Region).Msg("Event created")

	s.invalidate(ctx, cache.GetEventsVersionKey())
	s.publish(ctx, NotificationEventCreated, event)
	return event, nil
}

// ListRequests returns requests, most recently updated first. A non-empty
// eventID limits the result to that event's requests.
func (s *ReliefService) ListRequests(ctx context.Context, eventID string) ([]models.Request, error) {
	seg := s.tracer.StartSegment(ctx, "ListRequests")
	defer seg.End()

	versionKey := cache.GetRequestsVersionKey()
	keyFor := func(version int64) string { return cache.GetRequestsCacheKey(eventID, version) }
	var requests []models.Request
	version, hit := s.cacheGet(ctx, versionKey, keyFor, &requests)
	if hit {
		return requests, nil
	}

	requests, err := s.store.Requests.List(ctx, eventID)
	if err != nil {
		s.tracer.RecordError(ctx, err)
		return nil, err
	}
	if requests == nil {
		requests = []models.Request{}
	}

	s.cacheSet(ctx, versionKey, version, keyFor(version), requests)
	return requests, nil
}

// CreateRequest validates and stores a new request. The referenced event
// must exist; the check and the insert share one transaction.
func (s *ReliefService) CreateRequest(ctx context.Context, input models.RequestInput) (*models.Request, error) {
	seg := s.tracer.StartSegment(ctx, "CreateRequest")
	defer seg.End()

	if err := s.validate(validation.ValidateStruct(input)); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.RequestStatusNew
	}

	now := s.now()
	request := &models.Request{
		EventID:      input.EventID,
		Category:     input.Category,
		Urgency:      input.Urgency,
		Location:     input.Location,
		Description:  input.Description,
		Status:       status,
		AssigneeName: input.AssigneeName,
		AssigneeTeam: input.AssigneeTeam,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.WithTransaction(ctx, func(tx *repositories.Store) error {
		exists, err := tx.Events.ExistsForShare(ctx, input.EventID)
		if err != nil {
			return err
		}
		if !exists {
			return &ReferentialError{Field: "event_id", ID: input.EventID}
		}
		return tx.Requests.Create(ctx, request)
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	metrics.RequestsCreatedTotal.Inc()
	log.Info().
		Str("request_id", request.ID).
		Str("event_id", request.EventID).
		Str("category", string(request.Category)).
		Msg("Request created")

	s.afterRequestWrite(ctx, NotificationRequestCreated, request)
	return request, nil
}

// UpdateRequest applies a partial update to a request. Checks run in order:
// payload validation, request existence, then existence of a new event_id.
// An empty patch returns the stored record untouched.
func (s *ReliefService) UpdateRequest(ctx context.Context, id string, patch models.RequestPatch) (*models.Request, error) {
	seg := s.tracer.StartSegment(ctx, "UpdateRequest")
	defer seg.End()

	if err := s.validate(validation.ValidatePatch(patch)); err != nil {
		return nil, err
	}

	var updated *models.Request

	err := s.store.WithTransaction(ctx, func(tx *repositories.Store) error {
		current, err := tx.Requests.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return &NotFoundError{Resource: "request", ID: id}
			}
			return err
		}

		if patch.Empty() {
			updated = current
			return nil
		}

		if patch.EventID.HasValue() {
			exists, err := tx.Events.ExistsForShare(ctx, patch.EventID.Value)
			if err != nil {
				return err
			}
			if !exists {
				return &ReferentialError{Field: "event_id", ID: patch.EventID.Value}
			}
		}

		updates := patch.Updates()
		updates["updated_at"] = s.now()
		if err := tx.Requests.Update(ctx, id, updates); err != nil {
			return err
		}

		updated, err = tx.Requests.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	if patch.Empty() {
		return updated, nil
	}

	metrics.RequestsUpdatedTotal.Inc()
	log.Info().
		Str("request_id", updated.ID).
		Str("status", string(updated.Status)).
		Msg("Request updated")

	s.afterRequestWrite(ctx, NotificationRequestUpdated, updated)
	return updated, nil
}

// ReindexRequests writes every request to the search index and returns the
// number of documents sent
func (s *ReliefService) ReindexRequests(ctx context.Context) (int, error) {
	if s.indexer == nil || !s.indexer.Enabled() {
		return 0, nil
	}

	seg := s.tracer.StartSegment(ctx, "ReindexRequests")
	defer seg.End()

	events, err := s.store.Events.List(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]*models.Event, len(events))
	for i := range events {
		byID[events[i].ID] = &events[i]
	}

	indexed := 0
	err = s.store.Requests.FindInBatches(ctx, reindexBatchSize, func(batch []models.Request) error {
		if err := s.indexer.BulkIndexRequests(ctx, batch, byID); err != nil {
			return err
		}
		indexed += len(batch)
		metrics.RequestsIndexedTotal.Add(float64(len(batch)))
		return nil
	})
	if err != nil {
		s.tracer.RecordError(ctx, err)
		return indexed, errors.Wrap(err, "failed to reindex requests")
	}

	log.Info().Int("count", indexed).Msg("Requests reindexed")
	return indexed, nil
}

// validate converts validation failures into a ValidationError
func (s *ReliefService) validate(err error) error {
	if err == nil {
		return nil
	}

	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		metrics.RejectedWritesTotal.WithLabelValues("validation").Inc()
		return &ValidationError{Fields: fields}
	}
	return err
}

// fail records rejected writes and unexpected errors
func (s *ReliefService) fail(ctx context.Context, err error) error {
	var (
		refErr      *ReferentialError
		notFoundErr *NotFoundError
	)
	switch {
	case errors.As(err, &refErr):
		metrics.RejectedWritesTotal.WithLabelValues("referential").Inc()
	case errors.As(err, &notFoundErr):
		metrics.RejectedWritesTotal.WithLabelValues("not_found").Inc()
	default:
		s.tracer.RecordError(ctx, err)
	}
	return err
}

// afterRequestWrite invalidates cached request lists, reindexes the request
// and publishes a notification
func (s *ReliefService) afterRequestWrite(ctx context.Context, notification string, request *models.Request) {
	s.invalidate(ctx, cache.GetRequestsVersionKey())

	if s.indexer != nil && s.indexer.Enabled() {
		event, err := s.store.Events.GetByID(ctx, request.EventID)
		if err != nil {
			log.Warn().Err(err).Str("event_id", request.EventID).Msg("Failed to load event for indexing")
		}
		if err := s.indexer.IndexRequest(ctx, request, event); err != nil {
			log.Warn().Err(err).Str("request_id", request.ID).Msg("Failed to index request")
		} else {
			metrics.RequestsIndexedTotal.Inc()
		}
	}

	s.publish(ctx, notification, request)
}

// noFill marks a read whose version could not be sampled
const noFill = -1

// cacheGet samples the version and looks up the key built for it. The
// version is read before the database so cacheSet can detect a write in
// between.
func (s *ReliefService) cacheGet(ctx context.Context, versionKey string, keyFor func(int64) string, value interface{}) (int64, bool) {
	if s.cache == nil || !s.cache.Enabled() {
		return noFill, false
	}

	version, err := s.cache.Version(ctx, versionKey)
	if err != nil {
		log.Warn().Err(err).Str("key", versionKey).Msg("Cache version read failed")
		metrics.CacheMissesTotal.Inc()
		return noFill, false
	}

	key := keyFor(version)
	if err := s.cache.Get(ctx, key, value); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		metrics.CacheMissesTotal.Inc()
		return version, false
	}

	metrics.CacheHitsTotal.Inc()
	return version, true
}

func (s *ReliefService) cacheSet(ctx context.Context, versionKey string, version int64, key string, value interface{}) {
	if s.cache == nil || !s.cache.Enabled() || version == noFill {
		return
	}

	err := s.cache.SetIfVersion(ctx, versionKey, version, key, value, s.cacheTTL)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStaleVersion):
		log.Debug().Str("key", key).Msg("Skipped cache fill after concurrent write")
	default:
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (s *ReliefService) invalidate(ctx context.Context, versionKey string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, versionKey); err != nil {
		log.Warn().Err(err).Str("key", versionKey).Msg("Cache invalidation failed")
	}
}

func (s *ReliefService) publish(ctx context.Context, notification string, data interface{}) {
	if s.publisher == nil || !s.publisher.Enabled() {
		return
	}
	if err := s.publisher.Publish(ctx, notification, data); err != nil {
		log.Warn().Err(err).Str("type", notification).Msg("Failed to publish notification")
	}
}
