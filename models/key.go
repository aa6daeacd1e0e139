package models

import "time"

// Key is one license key for the script. MaxUses <= 0 means the key has no
// use limit; Uses only ever counts successful validations.
type Key struct {
	ID        int64      `json:"id"`
	Key       string     `json:"key"`
	Note      *string    `json:"note"`
	MaxUses   int        `json:"maxUses"`
	Uses      int        `json:"uses"`
	ExpiresAt *time.Time `json:"expiresAt"`
	IsRevoked bool       `json:"isRevoked"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (k *Key) HasUseLimit() bool {
	return k.MaxUses > 0
}

func (k *Key) UsesExhausted() bool {
	return k.HasUseLimit() && k.Uses >= k.MaxUses
}

// Expired reports whether the key's expiration instant is strictly in the
// past. A key without an expiration never expires.
func (k *Key) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
