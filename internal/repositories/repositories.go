package repositories

import (
	"context"
	"time"

	"example.com/pacific/relief/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row lock strengths
const (
	lockShare  = "SHARE"
	lockUpdate = "UPDATE"
)

// Store groups the repositories that share one database handle. Inside
// WithTransaction every repository runs on the transaction.
type Store struct {
	db        *gorm.DB
	Events    *EventRepository
	Requests  *RequestRepository
	SeedLocks *SeedLockRepository
}

// NewStore creates a store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Events:    NewEventRepository(db),
		Requests:  NewRequestRepository(db),
		SeedLocks: NewSeedLockRepository(db),
	}
}

// WithTransaction executes fn within a database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// withLock adds a row locking clause. SQLite has no row locks and serializes
// writers itself, so the clause is skipped there.
func withLock(db *gorm.DB, strength string) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: strength})
}

// EventRepository handles database operations for events
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns all events, oldest first
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	return events, nil
}

// Create inserts a single event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return errors.Wrap(err, "failed to create event")
	}
	return nil
}

// CreateBatch inserts several events in one statement
func (r *EventRepository) CreateBatch(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&events).Error; err != nil {
		return errors.Wrap(err, "failed to create events")
	}
	return nil
}

// GetByID retrieves an event by id
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to get event %s", id)
	}
	return &event, nil
}

// ExistsForShare reports whether an event exists and holds a shared lock on
// its row until the surrounding transaction ends
func (r *EventRepository) ExistsForShare(ctx context.Context, id string) (bool, error) {
	var ids []string
	err := withLock(r.db.WithContext(ctx), lockShare).
		Model(&models.Event{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, errors.Wrapf(err, "failed to look up event %s", id)
	}
	return len(ids) > 0, nil
}

// Count returns the number of events
func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Event{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count events")
	}
	return count, nil
}

// RequestRepository handles database operations for aid requests
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// List returns requests, most recently updated first. An empty eventID
// returns requests of every event.
func (r *RequestRepository) List(ctx context.Context, eventID string) ([]models.Request, error) {
	query := r.db.WithContext(ctx)
	if eventID != "" {
		query = query.Where("event_id = ?", eventID)
	}

	var requests []models.Request
	err := query.
		Order("updated_at DESC").
		Order("created_at DESC").
		Order("id ASC").
		Find(&requests).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list requests")
	}
	return requests, nil
}

// Create inserts a single request
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	return nil
}

// CreateBatch inserts several requests in one statement
func (r *RequestRepository) CreateBatch(ctx context.Context, requests []models.Request) error {
	if len(requests) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&requests).Error; err != nil {
		return errors.Wrap(err, "failed to create requests")
	}
	return nil
}

// GetByID retrieves a request by id
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate retrieves a request and locks its row until the surrounding
// transaction ends
func (r *RequestRepository) GetForUpdate(ctx context.Context, id string) (*models.Request, error) {
	return r.get(withLock(r.db.WithContext(ctx), lockUpdate), id)
}

func (r *RequestRepository) get(db *gorm.DB, id string) (*models.Request, error) {
	var request models.Request
	err := db.Where("id = ?", id).Take(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to get request %s", id)
	}
	return &request, nil
}

// Update applies column updates to one request
func (r *RequestRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to update request %s", id)
	}
	return nil
}

// FindInBatches walks every request in primary key order, batchSize rows
// at a time
func (r *RequestRepository) FindInBatches(ctx context.Context, batchSize int, fn func(batch []models.Request) error) error {
	var batch []models.Request
	result := r.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to walk requests")
	}
	return nil
}

// Count returns the number of requests
func (r *RequestRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Request{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count requests")
	}
	return count, nil
}

// SeedLockRepository manages the named rows that serialize seed routines
type SeedLockRepository struct {
	db *gorm.DB
}

// NewSeedLockRepository creates a new seed lock repository
func NewSeedLockRepository(db *gorm.DB) *SeedLockRepository {
	return &SeedLockRepository{db: db}
}

// Acquire makes sure the named lock row exists and then writes to it, which
// holds the row's write lock until the surrounding transaction ends.
// Concurrent callers block here until the holder commits or rolls back.
func (r *SeedLockRepository) Acquire(ctx context.Context, name string, now time.Time) error {
	db := r.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SeedLock{Name: name, LockedAt: now}).Error
	if err != nil {
		return errors.Wrapf(err, "failed to create seed lock %s", name)
	}

	err = db.Model(&models.SeedLock{}).
		Where("name = ?", name).
		Update("locked_at", now).Error
	if err != nil {
		return errors.Wrapf(err, "failed to take seed lock %s", name)
	}
	return nil
}
