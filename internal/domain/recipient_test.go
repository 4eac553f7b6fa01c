package domain

import (
	"testing"
	"time"
)

func TestReminderTargetsDefaultSelection(t *testing.T) {
	recipients := []Recipient{
		{ID: "a", Role: RoleSigner, Status: RecipientSent},
		{ID: "b", Role: RoleViewer, Status: RecipientSent},
		{ID: "c", Role: RoleSigner, Status: RecipientSigned},
	}
	got := ReminderTargets(recipients, "")
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("ReminderTargets = %+v, want exactly recipient a", got)
	}
}

func TestReminderTargetsSpecificRecipient(t *testing.T) {
	recipients := []Recipient{
		{ID: "a", Role: RoleSigner, Status: RecipientSent},
		{ID: "b", Role: RoleSigner, Status: RecipientViewed},
	}
	got := ReminderTargets(recipients, "b")
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("specific targeting = %+v, want recipient b", got)
	}
	if got := ReminderTargets(recipients, "missing"); len(got) != 0 {
		t.Fatalf("unknown recipient id must select nobody, got %+v", got)
	}
	signed := []Recipient{{ID: "a", Role: RoleSigner, Status: RecipientSigned}}
	if got := ReminderTargets(signed, "a"); len(got) != 0 {
		t.Fatalf("signed recipient is never due a reminder, got %+v", got)
	}
}

func TestReminderAllowed(t *testing.T) {
	tests := []struct {
		status DocumentStatus
		ok     bool
	}{
		{StatusDraft, false},
		{StatusSent, true},
		{StatusViewed, true},
		{StatusPartiallySigned, true},
		{StatusCompleted, false},
		{StatusVoided, false},
		{StatusExpired, false},
		{StatusDeclined, false},
	}
	for _, tt := range tests {
		err := ReminderAllowed(tt.status)
		if tt.ok && err != nil {
			t.Fatalf("%s: unexpected err %v", tt.status, err)
		}
		if !tt.ok && err == nil {
			t.Fatalf("%s: expected reminder refusal", tt.status)
		}
	}
}

func TestBlockedBySigningOrder(t *testing.T) {
	recipients := []Recipient{
		{ID: "first", Role: RoleSigner, SigningOrder: 1, Status: RecipientSent},
		{ID: "second", Role: RoleSigner, SigningOrder: 2, Status: RecipientSent},
		{ID: "watcher", Role: RoleViewer, SigningOrder: 0, Status: RecipientSent},
	}
	if BlockedBySigningOrder(recipients, recipients[0]) {
		t.Fatalf("the lowest-order signer is never blocked")
	}
	if !BlockedBySigningOrder(recipients, recipients[1]) {
		t.Fatalf("second signer must be blocked while first is unsigned")
	}

	recipients[0].Status = RecipientSigned
	if BlockedBySigningOrder(recipients, recipients[1]) {
		t.Fatalf("second signer unblocks once first has signed")
	}
}

func TestUnfilledRequired(t *testing.T) {
	filled := time.Now()
	now := &filled
	fields := []Field{
		{ID: "f1", RecipientID: "r1", Type: FieldSignature, Required: true},
		{ID: "f2", RecipientID: "r1", Type: FieldText, Required: false},
		{ID: "f3", RecipientID: "r1", Type: FieldDateSigned, Required: true, Value: "2026-01-01", FilledAt: now},
		{ID: "f4", RecipientID: "r2", Type: FieldSignature, Required: true},
	}
	got := UnfilledRequired(fields, "r1")
	if len(got) != 1 || got[0].ID != "f1" {
		t.Fatalf("UnfilledRequired = %+v, want exactly f1", got)
	}
}
