package models

import "time"

// Validation is one row of the append-only audit trail. Exactly one row is
// written per accepted validation; rejections are never logged. KeyID is a
// weak reference: deleting a key leaves its history behind.
type Validation struct {
	ID        int64     `json:"id"`
	KeyID     *int64    `json:"keyId"`
	HWID      *string   `json:"hwid"`
	IP        *string   `json:"ip"`
	UserAgent *string   `json:"userAgent"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is the aggregate view the admin dashboard polls.
type Stats struct {
	TotalKeys        int `json:"totalKeys"`
	ActiveKeys       int `json:"activeKeys"`
	TotalValidations int `json:"totalValidations"`
	BannedUsers      int `json:"bannedUsers"`
}
