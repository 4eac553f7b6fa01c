package db

import "time"

type DocumentModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	TeamID         string `gorm:"type:uuid;index;not null"`
	CreatedBy      string `gorm:"type:uuid;not null"`
	Title          string `gorm:"not null"`
	Description    string
	FileKey        string `gorm:"not null"`
	StorageTag     string `gorm:"not null"`
	PageCount      int
	Status         string `gorm:"index;not null"`
	SentAt         *time.Time
	CompletedAt    *time.Time `gorm:"index"`
	DeclinedAt     *time.Time
	VoidedAt       *time.Time
	VoidReason     string
	ExpirationDate *time.Time
	CertificateKey string
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (DocumentModel) TableName() string { return "documents" }

type RecipientModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	DocumentID   string `gorm:"type:uuid;index;not null"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"index;not null"`
	Role         string `gorm:"not null"`
	SigningOrder int    `gorm:"not null"`
	Status       string `gorm:"not null"`

	DeclineReason string

	SigningToken *string `gorm:"uniqueIndex"`
	SigningURL   string

	SignedAt          *time.Time
	CaptureIP         string
	CaptureClient     string
	SignatureImageKey string

	ChecksumDocumentHash  string
	ChecksumSignatureHash string
	ChecksumAlgorithm     string
	ChecksumCreatedAt     *time.Time
	VerificationToken     *string `gorm:"uniqueIndex"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (RecipientModel) TableName() string { return "recipients" }

type FieldModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	DocumentID  string  `gorm:"type:uuid;index;not null"`
	RecipientID *string `gorm:"type:uuid;index"`
	Type        string  `gorm:"not null"`
	Page        int     `gorm:"not null"`
	X           float64 `gorm:"not null"`
	Y           float64 `gorm:"not null"`
	Width       float64 `gorm:"not null"`
	Height      float64 `gorm:"not null"`
	Required    bool    `gorm:"not null"`
	Value       string
	FilledAt    *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

func (FieldModel) TableName() string { return "fields" }

type AuditLogModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	DocumentID  string  `gorm:"type:uuid;index;not null"`
	TeamID      string  `gorm:"type:uuid;index;not null"`
	RecipientID *string `gorm:"type:uuid"`
	Event       string  `gorm:"index;not null"`
	IPAddress   string
	UserAgent   string
	Browser     string
	OS          string
	Device      string
	Referer     string
	SessionID   string
	Page        *int
	DurationMS  *int
	Metadata    []byte    `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (AuditLogModel) TableName() string { return "audit_log" }
