package storage

import (
	"context"
	"errors"

	"evade.gg/keyserver/models"
)

// Sentinel errors for uniqueness violations, so handlers can map them to a
// conflict response without parsing driver error text.
var (
	ErrDuplicateKey  = errors.New("key already exists")
	ErrDuplicateHWID = errors.New("hwid already blacklisted")
)

type Storage interface {
	// Keys
	CreateKey(ctx context.Context, key *models.Key) (*models.Key, error)
	FindKeyByCode(ctx context.Context, code string) (*models.Key, error)
	ListKeys(ctx context.Context) ([]*models.Key, error)
	DeleteKey(ctx context.Context, id int64) error
	// IncrementKeyUses adds exactly 1 to the key's use counter as a relative
	// update at the storage layer, so concurrent validations never lose
	// increments.
	IncrementKeyUses(ctx context.Context, id int64) error

	// Blacklist
	AddToBlacklist(ctx context.Context, entry *models.BlacklistEntry) (*models.BlacklistEntry, error)
	FindBlacklistByHWID(ctx context.Context, hwid string) (*models.BlacklistEntry, error)
	ListBlacklist(ctx context.Context) ([]*models.BlacklistEntry, error)
	RemoveFromBlacklist(ctx context.Context, id int64) error

	// Validation log, append-only, written for accepted validations only
	LogValidation(ctx context.Context, keyID int64, hwid, ip, userAgent string) (*models.Validation, error)
	CountValidations(ctx context.Context) (int, error)

	GetStats(ctx context.Context) (*models.Stats, error)

	Close() error
}
