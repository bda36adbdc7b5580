package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Core tables (decisions, follow-ups, action plans)
		{
			ID: "001_decision_tables",
			Migrate: func(tx *gorm.DB) error {
				// AutoMigrate creates tables with all indexes from struct tags
				if err := tx.AutoMigrate(&Decision{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&FollowUp{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&ActionPlan{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("decision_action_plans", "decision_follow_ups", "decisions")
			},
		},

		// Migration 002: 7-day check-ins
		{
			ID: "002_check_ins",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&CheckIn{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("decision_check_ins")
			},
		},

		// Migration 003: Per-user history listing and quota counting
		{
			ID: "003_decisions_user_created_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_decisions_user_created
					ON decisions(user_id, created_at_epoch DESC)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_decisions_user_created").Error
			},
		},
	})

	return m.Migrate()
}
