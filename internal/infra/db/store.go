package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB        *gorm.DB
	Documents *DocumentRepository
	AuditLog  *AuditLogRepository
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{
		DB:        gdb,
		Documents: NewDocumentRepository(gdb),
		AuditLog:  NewAuditLogRepository(gdb),
	}, nil
}
