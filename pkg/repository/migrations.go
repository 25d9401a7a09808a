package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"gorm.io/gorm"
)

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Name    string
	Up      func(*gorm.DB) error
	Down    func(*gorm.DB) error
}

// MigrationRecord tracks an applied migration.
type MigrationRecord struct {
	Version   string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"size:200"`
	AppliedAt time.Time
}

// TableName pins the tracking table name.
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version   string
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

func createTables(models ...any) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		return db.AutoMigrate(models...)
	}
}

func dropTables(models ...any) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		// reverse order so dependents go first
		for i := len(models) - 1; i >= 0; i-- {
			if err := db.Migrator().DropTable(models[i]); err != nil {
				return err
			}
		}
		return nil
	}
}

func tables(models ...any) (func(*gorm.DB) error, func(*gorm.DB) error) {
	return createTables(models...), dropTables(models...)
}

// tenantUniqueIndexes are composite unique indexes that lead with tenant_id,
// which the embedded TenantScoped column cannot declare through struct tags.
var tenantUniqueIndexes = []struct{ name, table, columns string }{
	{"idx_customers_tenant_email", "customers", "tenant_id, email"},
	{"idx_api_keys_tenant_platform_name", "api_keys", "tenant_id, platform, key_name"},
	{"idx_social_accounts_tenant_platform", "social_accounts", "tenant_id, platform"},
}

func createTenantUniqueIndexes(db *gorm.DB) error {
	for _, ix := range tenantUniqueIndexes {
		// earlier schemas carried these names without tenant_id
		if err := db.Exec("DROP INDEX IF EXISTS " + ix.name).Error; err != nil {
			return err
		}
		if err := db.Exec(fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", ix.name, ix.table, ix.columns)).Error; err != nil {
			return err
		}
	}
	return nil
}

func dropTenantUniqueIndexes(db *gorm.DB) error {
	for _, ix := range tenantUniqueIndexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + ix.name).Error; err != nil {
			return err
		}
	}
	return nil
}

// addSessionRotation adds the columns refresh token rotation needs to
// sessions created before it existed.
func addSessionRotation(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Session{})
}

func dropSessionRotation(db *gorm.DB) error {
	m := db.Migrator()
	if m.HasIndex(&domain.Session{}, "idx_sessions_previous_token_hash") {
		if err := m.DropIndex(&domain.Session{}, "idx_sessions_previous_token_hash"); err != nil {
			return err
		}
	}
	for _, col := range []string{"previous_token_hash", "mfa_verified"} {
		if m.HasColumn(&domain.Session{}, col) {
			if err := m.DropColumn(&domain.Session{}, col); err != nil {
				return err
			}
		}
	}
	return nil
}

// Migrations returns the full, ordered migration set.
func Migrations() []*Migration {
	var list []*Migration
	add := func(version, name string, models ...any) {
		up, down := tables(models...)
		list = append(list, &Migration{Version: version, Name: name, Up: up, Down: down})
	}

	add("20250601000001", "create_identity_tables",
		&domain.Tenant{}, &domain.User{}, &domain.Session{}, &domain.VerificationToken{},
		&domain.MFASecret{}, &domain.MFARecoveryCode{})
	add("20250601000002", "create_business_tables",
		&domain.BusinessProfile{}, &domain.APIKey{})
	add("20250601000003", "create_content_tables",
		&domain.Content{}, &domain.ContentTemplate{}, &domain.ContentSchedule{})
	add("20250601000004", "create_crm_tables",
		&domain.Customer{}, &domain.Lead{}, &domain.Pipeline{}, &domain.Deal{}, &domain.Activity{})
	add("20250601000005", "create_communication_tables",
		&domain.Campaign{}, &domain.Message{}, &domain.CallLog{})
	add("20250601000006", "create_social_tables",
		&domain.SocialAccount{}, &domain.SocialPost{}, &domain.SocialEngagement{})
	add("20250601000007", "create_automation_tables",
		&domain.Workflow{}, &domain.WorkflowStep{}, &domain.WorkflowExecution{})
	add("20250601000008", "create_analytics_tables",
		&domain.AnalyticsEvent{}, &domain.Report{}, &domain.KPI{})
	list = append(list, &Migration{
		Version: "20250601000009",
		Name:    "add_tenant_unique_indexes",
		Up:      createTenantUniqueIndexes,
		Down:    dropTenantUniqueIndexes,
	})
	list = append(list, &Migration{
		Version: "20250601000010",
		Name:    "add_session_rotation_columns",
		Up:      addSessionRotation,
		Down:    dropSessionRotation,
	})

	return list
}

// Migrator applies and rolls back migrations, tracking them in schema_migrations.
type Migrator struct {
	db         *gorm.DB
	migrations []*Migration
}

// NewMigrator creates a migrator over the given migration set.
func NewMigrator(db *gorm.DB, migrations []*Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

func (m *Migrator) ensureVersionTable() error {
	return m.db.AutoMigrate(&MigrationRecord{})
}

// applied returns applied records keyed by version.
func (m *Migrator) applied() (map[string]MigrationRecord, error) {
	if err := m.ensureVersionTable(); err != nil {
		return nil, err
	}
	var records []MigrationRecord
	if err := m.db.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string]MigrationRecord, len(records))
	for _, r := range records {
		out[r.Version] = r
	}
	return out, nil
}

// Up applies all pending migrations in order and returns how many ran.
func (m *Migrator) Up() (int, error) {
	applied, err := m.applied()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mg := range m.migrations {
		if _, ok := applied[mg.Version]; ok {
			continue
		}
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mg.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{
				Version:   mg.Version,
				Name:      mg.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return count, fmt.Errorf("migration %s_%s failed: %w", mg.Version, mg.Name, err)
		}
		count++
	}
	return count, nil
}

// Down rolls back the most recently applied migration. It returns the rolled back
// migration, or nil when nothing was applied.
func (m *Migrator) Down() (*Migration, error) {
	if err := m.ensureVersionTable(); err != nil {
		return nil, err
	}

	var last MigrationRecord
	err := m.db.Order("version DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, mg := range m.migrations {
		if mg.Version != last.Version {
			continue
		}
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mg.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&last).Error
		})
		if err != nil {
			return nil, fmt.Errorf("rollback %s_%s failed: %w", mg.Version, mg.Name, err)
		}
		return mg, nil
	}
	return nil, fmt.Errorf("applied migration %s is not registered", last.Version)
}

// Status lists every registered migration with its applied state.
func (m *Migrator) Status() ([]MigrationStatus, error) {
	applied, err := m.applied()
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(m.migrations))
	for _, mg := range m.migrations {
		st := MigrationStatus{Version: mg.Version, Name: mg.Name}
		if rec, ok := applied[mg.Version]; ok {
			st.Applied = true
			at := rec.AppliedAt
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// Migrate applies every pending migration.
func Migrate(db *gorm.DB) error {
	_, err := NewMigrator(db, Migrations()).Up()
	return err
}
