package database

import (
	"time"

	"example.com/pacific/relief/internal/metrics"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const startTimeKey = "metrics:start_time"

// RegisterMetricsHooks registers GORM callbacks that record query counts and
// durations in Prometheus
func RegisterMetricsHooks(db *gorm.DB) error {
	cb := db.Callback()

	hooks := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		kind   string
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, metrics.DBQueryTypeInsert},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, metrics.DBQueryTypeSelect},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, metrics.DBQueryTypeUpdate},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, metrics.DBQueryTypeDelete},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, metrics.DBQueryTypeRaw},
	}

	for _, h := range hooks {
		kind := h.kind
		if err := h.before("duration:"+h.name, logStart); err != nil {
			return errors.Wrapf(err, "failed to register %s duration hook", h.name)
		}
		if err := h.after("metrics:"+h.name, func(db *gorm.DB) {
			metrics.RecordDatabaseQuery(kind, db.Error == nil, getDuration(db).Seconds())
		}); err != nil {
			return errors.Wrapf(err, "failed to register %s metrics hook", h.name)
		}
	}

	return nil
}

// logStart sets the start time of the database operation
func logStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

// getDuration returns the time since logStart ran for this statement
func getDuration(db *gorm.DB) time.Duration {
	if start, ok := db.InstanceGet(startTimeKey); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}
