package db

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a compare-and-swap on report status
	// finds a different current status than expected.
	ErrStatusConflict = errors.New("report status changed concurrently")
	// ErrQuotaExceeded is returned when a submission reservation would pass the
	// citizen's daily limit.
	ErrQuotaExceeded = errors.New("submission limit reached")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("record already exists")
)

type GormDB struct {
	DB *gorm.DB
}

// GetDB opens postgres from configuration and runs migrations.
func GetDB(c *config.Config) (*GormDB, error) {
	gormDB := &GormDB{}
	if err := gormDB.Init(c); err != nil {
		return nil, err
	}
	return gormDB, nil
}

func (g *GormDB) Init(c *config.Config) error {
	conn, err := OpenDSN(PostgresDSN(c), !c.IsProduction())
	if err != nil {
		return err
	}
	g.DB = conn

	if err := Migrate(g.DB); err != nil {
		return fmt.Errorf("unable to run migrations: %w", err)
	}
	return nil
}

func PostgresDSN(c *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode)
}

// OpenDSN connects gorm to postgres. verbose turns on SQL logging.
func OpenDSN(dsn string, verbose bool) (*gorm.DB, error) {
	slog.Info("connecting to postgres")
	gormConfig := &gorm.Config{TranslateError: true}
	if verbose {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DSN: dsn,
	}), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return gormDB, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Citizen{},
		&models.Authority{},
		&models.Report{},
		&models.Notification{},
		&models.Reward{},
		&models.Blacklist{},
	)
	if err != nil {
		return fmt.Errorf("migrations error: %v", err)
	}
	return nil
}

// GormRepositories bundles the postgres implementations.
func GormRepositories(g *GormDB) (ReportRepository, DirectoryRepository, NotificationRepository, RewardRepository, AuthRepository) {
	return NewReportRepo(g), NewDirectoryRepo(g), NewNotificationRepo(g), NewRewardRepo(g), NewAuthRepo(g)
}

func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return errors.Wrap(err, msg)
}
