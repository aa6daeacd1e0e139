package models

import "time"

// BlacklistEntry bans a hardware id and/or IP address. A hardware id appears
// in at most one entry.
type BlacklistEntry struct {
	ID       int64     `json:"id"`
	HWID     *string   `json:"hwid"`
	IP       *string   `json:"ip"`
	Reason   *string   `json:"reason"`
	BannedAt time.Time `json:"bannedAt"`
}
