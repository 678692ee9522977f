package database

import (
	"context"
	"time"
	"yieldpool/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var log = config.InitLogger()

type Postgres struct {
	Db *sqlx.DB
}

func NewPostgres(cfg *config.PostgresConfig) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		log.Error("Failed to connect to database: ", err)
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Postgres{
		Db: db,
	}, nil
}

func (p *Postgres) Close() error {
	err := p.Db.Close()
	if err != nil {
		log.Error("Error closing database: ", err)
		return err
	}

	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Db.PingContext(ctx)
}
