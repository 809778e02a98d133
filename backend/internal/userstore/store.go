// Package userstore reads user records from Postgres or DynamoDB.
package userstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

// Store fetches up to limit users.
type Store interface {
	FetchUsers(ctx context.Context, limit int) ([]User, error)
}

// Config selects and configures the store. Embed it in a function environment.
type Config struct {
	Backend     string `env:"BW_USER_STORE" envDefault:"postgres" validate:"oneof=postgres dynamodb"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=Backend postgres"`
	TableName   string `env:"BW_USERS_TABLE_NAME" validate:"required_if=Backend dynamodb"`
}

// Params are the dependencies of New.
type Params struct {
	fx.In

	Config    Config
	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Dynamo    ScanAPI `optional:"true"`
}

// New builds the store selected by the config. The Postgres connection is closed when
// the app stops.
func New(p Params) (Store, error) {
	switch p.Config.Backend {
	case BackendDynamoDB:
		if p.Dynamo == nil {
			return nil, errors.New("dynamodb user store requires a registered DynamoDB client")
		}
		p.Logger.Debug("using dynamodb user store", zap.String("table", p.Config.TableName))
		return NewDynamoStore(p.Dynamo, p.Config.TableName), nil
	case BackendPostgres, "":
		db, err := OpenPostgres(p.Config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		})
		p.Logger.Debug("using postgres user store")
		return NewGormStore(db), nil
	default:
		return nil, errors.Newf("unsupported BW_USER_STORE: %q (supported: postgres, dynamodb)", p.Config.Backend)
	}
}

// Module provides a Store. The Config must be supplied by the caller.
var Module = fx.Module("userstore", fx.Provide(New))
