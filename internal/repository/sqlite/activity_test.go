package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/botpanel/internal/model"
)

func TestRecordAndListActivity_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "D1", "owner")

	actions := []string{model.ActionUserLogin, model.ActionAccountCreated, model.ActionAccountStarted}
	for _, action := range actions {
		if err := db.RecordActivity(ctx, &model.Activity{UserID: user.ID, Action: action, IPAddress: "127.0.0.1"}); err != nil {
			t.Fatalf("RecordActivity(%s) error = %v", action, err)
		}
	}

	entries, err := db.ListActivity(ctx, 2)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2 (limit)", len(entries))
	}
	if entries[0].Action != model.ActionAccountStarted || entries[1].Action != model.ActionAccountCreated {
		t.Errorf("order = [%s %s]", entries[0].Action, entries[1].Action)
	}
	if entries[0].UserID != user.ID || entries[0].IPAddress != "127.0.0.1" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestRecordActivity_SystemEntryHasNoUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := &model.Activity{Action: model.ActionAccountsChecked, Details: "scheduled"}
	if err := db.RecordActivity(ctx, entry); err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}
	if entry.ID == 0 {
		t.Error("RecordActivity() did not set ID")
	}

	entries, err := db.ListActivity(ctx, 10)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "" {
		t.Errorf("entries = %+v", entries)
	}
}
