package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"evade.gg/keyserver/models"
)

// MemoryStorage keeps everything in maps. Used by tests and local
// development; the mutex makes it safe under concurrent validations the same
// way the SQLite implementation is.
type MemoryStorage struct {
	mu sync.RWMutex

	Keys        map[int64]models.Key
	Blacklist   map[int64]models.BlacklistEntry
	Validations map[int64]models.Validation

	keyID        atomic.Int64
	blacklistID  atomic.Int64
	validationID atomic.Int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Keys:        make(map[int64]models.Key),
		Blacklist:   make(map[int64]models.BlacklistEntry),
		Validations: make(map[int64]models.Validation),
	}
}

func (m *MemoryStorage) CreateKey(ctx context.Context, key *models.Key) (*models.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Keys {
		if existing.Key == key.Key {
			return nil, ErrDuplicateKey
		}
	}

	created := *key
	created.ID = m.keyID.Inc()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	m.Keys[created.ID] = created

	return &created, nil
}

func (m *MemoryStorage) FindKeyByCode(ctx context.Context, code string) (*models.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.Keys {
		if key.Key == code {
			keyCopy := key
			return &keyCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListKeys(ctx context.Context) ([]*models.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]*models.Key, 0, len(m.Keys))
	for _, key := range m.Keys {
		keyCopy := key
		keys = append(keys, &keyCopy)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].ID > keys[j].ID
		}
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})

	return keys, nil
}

func (m *MemoryStorage) DeleteKey(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Deleting an unknown id is a silent no-op, matching the SQLite
	// implementation. Validation history keeps its dangling keyId.
	delete(m.Keys, id)
	return nil
}

func (m *MemoryStorage) IncrementKeyUses(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, exists := m.Keys[id]
	if !exists {
		return nil
	}
	key.Uses++
	m.Keys[id] = key
	return nil
}

func (m *MemoryStorage) AddToBlacklist(ctx context.Context, entry *models.BlacklistEntry) (*models.BlacklistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.HWID != nil {
		for _, existing := range m.Blacklist {
			if existing.HWID != nil && *existing.HWID == *entry.HWID {
				return nil, ErrDuplicateHWID
			}
		}
	}

	created := *entry
	created.ID = m.blacklistID.Inc()
	if created.BannedAt.IsZero() {
		created.BannedAt = time.Now().UTC()
	}
	m.Blacklist[created.ID] = created

	return &created, nil
}

func (m *MemoryStorage) FindBlacklistByHWID(ctx context.Context, hwid string) (*models.BlacklistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, entry := range m.Blacklist {
		if entry.HWID != nil && *entry.HWID == hwid {
			entryCopy := entry
			return &entryCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListBlacklist(ctx context.Context) ([]*models.BlacklistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*models.BlacklistEntry, 0, len(m.Blacklist))
	for _, entry := range m.Blacklist {
		entryCopy := entry
		entries = append(entries, &entryCopy)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BannedAt.Equal(entries[j].BannedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].BannedAt.After(entries[j].BannedAt)
	})

	return entries, nil
}

func (m *MemoryStorage) RemoveFromBlacklist(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Blacklist, id)
	return nil
}

func (m *MemoryStorage) LogValidation(ctx context.Context, keyID int64, hwid, ip, userAgent string) (*models.Validation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	validation := models.Validation{
		ID:        m.validationID.Inc(),
		KeyID:     &keyID,
		Timestamp: time.Now().UTC(),
	}
	if hwid != "" {
		validation.HWID = &hwid
	}
	if ip != "" {
		validation.IP = &ip
	}
	if userAgent != "" {
		validation.UserAgent = &userAgent
	}
	m.Validations[validation.ID] = validation

	return &validation, nil
}

func (m *MemoryStorage) CountValidations(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.Validations), nil
}

func (m *MemoryStorage) GetStats(ctx context.Context) (*models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.Stats{
		TotalKeys:        len(m.Keys),
		TotalValidations: len(m.Validations),
		BannedUsers:      len(m.Blacklist),
	}
	for _, key := range m.Keys {
		if !key.IsRevoked {
			stats.ActiveKeys++
		}
	}

	return stats, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
