package model

import "time"

// Activity actions recorded in the audit log.
const (
	ActionUserLogin       = "user.login"
	ActionUserAuthorized  = "user.authorized"
	ActionUserDeleted     = "user.deleted"
	ActionAccountCreated  = "account.created"
	ActionAccountDeleted  = "account.deleted"
	ActionAccountStarted  = "account.started"
	ActionAccountStopped  = "account.stopped"
	ActionAccountsChecked = "accounts.validated"
	ActionHostManual      = "host.manual"
)

// Activity is one row of the audit log. UserID is the acting user and is empty
// for system actions such as scheduled revalidation.
type Activity struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats is the public summary shown on the landing page.
type Stats struct {
	ActiveBots    int `json:"activeBots"`
	TotalUsers    int `json:"totalUsers"`
	TotalAccounts int `json:"totalAccounts"`
}
