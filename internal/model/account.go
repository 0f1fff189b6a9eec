package model

import (
	"encoding/json"
	"time"
)

// AccountStatus is the hosting state of an account.
//
// Only Offline and Online are reachable through start/stop/validate. The other
// values are accepted by the schema for presence display but nothing sets them.
type AccountStatus string

const (
	StatusOffline   AccountStatus = "offline"
	StatusOnline    AccountStatus = "online"
	StatusIdle      AccountStatus = "idle"
	StatusDND       AccountStatus = "dnd"
	StatusInvisible AccountStatus = "invisible"
)

// Account is a hosted Discord credential owned by exactly one User.
//
// Token is the raw credential. It is never serialized: JSON carries only
// tokenPreview. The Discord* and *Count fields are a cache refreshed by
// validation. PID is the handle reported by the launcher (or a placeholder when
// the launcher could not be reached) and is nil while the account is offline.
type Account struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Token           string        `json:"-"`
	DiscordUsername string        `json:"discordUsername"`
	DiscordAvatar   string        `json:"discordAvatar"`
	GuildsCount     int           `json:"guildsCount"`
	FriendsCount    int           `json:"friendsCount"`
	Status          AccountStatus `json:"status"`
	PID             *int          `json:"pid"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// tokenPreviewLen is how many leading characters of a token are shown.
const tokenPreviewLen = 6

// TokenPreview returns the first few characters of the token followed by a mask.
func (a *Account) TokenPreview() string {
	if len(a.Token) <= tokenPreviewLen {
		return "****"
	}
	return a.Token[:tokenPreviewLen] + "****"
}

// InstanceName is the launcher process name for this account.
func (a *Account) InstanceName() string {
	return "bot-" + a.ID
}

// MarshalJSON adds the masked token to the regular field set.
func (a Account) MarshalJSON() ([]byte, error) {
	type plain Account
	return json.Marshal(struct {
		plain
		TokenPreview string `json:"tokenPreview"`
	}{
		plain:        plain(a),
		TokenPreview: a.TokenPreview(),
	})
}

// AccountProfile is the set of cached fields a successful validation writes.
type AccountProfile struct {
	DiscordUsername string
	DiscordAvatar   string
	GuildsCount     int
	FriendsCount    int
}
