package userstore

import (
	"context"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	goretry "github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultMaxRetries    = 3
	defaultRetryInterval = 100 * time.Millisecond
)

// GormStore reads users from Postgres. Queries run behind a circuit breaker and transient
// Postgres errors are retried with exponential backoff.
type GormStore struct {
	db         *gorm.DB
	cb         *gobreaker.CircuitBreaker[[]User]
	maxRetries uint64
	interval   time.Duration
}

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithRetry sets the number of retries after the first attempt and the initial backoff.
func WithRetry(maxRetries uint64, interval time.Duration) GormOption {
	return func(s *GormStore) {
		s.maxRetries = maxRetries
		s.interval = interval
	}
}

// WithBreakerSettings replaces the default circuit breaker settings.
func WithBreakerSettings(settings gobreaker.Settings) GormOption {
	return func(s *GormStore) {
		s.cb = gobreaker.NewCircuitBreaker[[]User](settings)
	}
}

// NewGormStore creates a store on db.
func NewGormStore(db *gorm.DB, opts ...GormOption) *GormStore {
	s := &GormStore{
		db:         db,
		cb:         gobreaker.NewCircuitBreaker[[]User](gobreaker.Settings{Name: "postgresql"}),
		maxRetries: defaultMaxRetries,
		interval:   defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPostgres opens a gorm connection for dsn.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	return db, nil
}

// FetchUsers implements Store.
func (s *GormStore) FetchUsers(ctx context.Context, limit int) ([]User, error) {
	users, err := s.cb.Execute(func() ([]User, error) {
		var users []User
		backoff := goretry.WithMaxRetries(s.maxRetries, goretry.NewExponential(s.interval))
		err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
			var entities []userEntity
			if err := s.db.WithContext(ctx).Order("id").Limit(limit).Find(&entities).Error; err != nil {
				if IsRetryable(err) {
					return goretry.RetryableError(err)
				}
				return err
			}

			users = make([]User, 0, len(entities))
			for _, e := range entities {
				users = append(users, e.toDomain())
			}
			return nil
		})
		return users, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch users")
	}
	return users, nil
}

// IsRetryable reports whether err is a transient Postgres or network failure.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"08006", // connection_failure
			"08001", // sqlclient_unable_to_establish_sqlconnection
			"08004": // sqlserver_rejected_establishment_of_sqlconnection
			return true
		}
	}

	var netErr *net.OpError
	return errors.As(err, &netErr)
}

var _ Store = (*GormStore)(nil)
