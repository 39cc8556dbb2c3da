package db

import (
	"fmt"

	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if db.Dialector.Name() == DriverPostgres {
		if err := EnsureRaffleConstraints(db); err != nil {
			return err
		}
	}
	return nil
}

// EnsureRaffleConstraints adds check constraints that back the in-memory
// invariants at the storage layer. Postgres only; SQLite cannot add
// constraints to an existing table.
func EnsureRaffleConstraints(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"chk_assignment_no_self", `ALTER TABLE raffle_assignment ADD CONSTRAINT chk_assignment_no_self CHECK (giver_id <> receiver_id)`},
		{"chk_exclusion_ordered", `ALTER TABLE raffle_exclusion ADD CONSTRAINT chk_exclusion_ordered CHECK (member_a < member_b)`},
		{"chk_chat_sender_role", `ALTER TABLE chat_message ADD CONSTRAINT chk_chat_sender_role CHECK (sender_role IN ('santa', 'giftee'))`},
	}
	for _, st := range stmts {
		if err := db.Exec(`
			DO $$
			BEGIN
				` + st.sql + `;
			EXCEPTION WHEN duplicate_object THEN NULL;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating database tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	s.log.Info("Auto migration complete")
	return nil
}
