// Package gorm provides the GORM-backed decision store.
//
// The same models and migrations run on PostgreSQL (production) and on
// SQLite through the pure-Go modernc driver (single-user installs and tests).
//
//	store, err := gorm.NewStore(gorm.Config{
//	    Driver:   gorm.DriverSQLite,
//	    Path:     "/path/to/decisions.db",
//	    LogLevel: logger.Silent,
//	})
//	decisions := gorm.NewDecisionStore(store)
//
// Timestamps are stored as the ISO strings the clients exchange, with a
// parallel epoch column for ordering.
package gorm
