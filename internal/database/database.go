package database

import (
	"database/sql"
	"fmt"
	"time"
)

type PgCollabRepository struct {
	conn *sql.DB
}

func NewPgCollabRepository(dsn string) (*PgCollabRepository, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PgCollabRepository{conn: conn}, nil
}

func (db *PgCollabRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgCollabRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
