package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

// Well-known setting keys.
const (
	KeyPromptPayTarget = "promptpay_target"
	KeyStoreName       = "store_name"
	KeyStoreAddress    = "store_address"
)

// Service is the key/value store for runtime store configuration.
type Service interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Unset(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}

type service struct {
	db *gorm.DB
}

// NewService returns a settings service bound to the provided database.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, errors.New("settings: database required")
	}
	return &service{db: db}, nil
}

// Get returns the value for key. The second return is false when the key is
// absent or explicitly null.
func (s *service) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	var row models.Setting
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if row.Value == nil {
		return "", false, nil
	}
	return *row.Value, true, nil
}

// Set upserts the key.
func (s *service) Set(ctx context.Context, key string, value string) error {
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	row := models.Setting{Key: key, Value: &value}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *service) Unset(ctx context.Context, key string) error {
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	return s.db.WithContext(ctx).Delete(&models.Setting{}, "key = ?", key).Error
}

func (s *service) List(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Value != nil {
			values[row.Key] = *row.Value
		}
	}
	return values, nil
}
