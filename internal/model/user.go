// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a person who signed in to the panel with Discord.
//
// DiscordID is the external identity and is UNIQUE in the database: one Discord
// account maps to exactly one panel user. Username and Avatar are copied from
// Discord on every login. Avatar is the CDN URL (empty when the user has none).
//
// IsAdmin is decided once at creation from the admin allow-list, or later by the
// promote-admin command. IsAuthed starts false and only an admin flips it.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	DiscordID string    `json:"discordId"`
	Avatar    string    `json:"avatar"`
	IsAdmin   bool      `json:"isAdmin"`
	IsAuthed  bool      `json:"isAuthed"`
	CreatedAt time.Time `json:"createdAt"`
}
