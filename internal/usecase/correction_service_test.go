package usecase

import (
	"context"
	"errors"
	"testing"

	"signflow/internal/domain"

	"go.uber.org/zap"
)

func newCorrectionService(env *testEnv) *CorrectionService {
	recorder := NewAuditRecorder(env.audit, env.analytics, zap.NewNop())
	return NewCorrectionService(env.docs, recorder, zap.NewNop())
}

func TestCorrectClonesInFlightDocument(t *testing.T) {
	env := newTestEnv(t)
	corrections := newCorrectionService(env)
	ctx := context.Background()

	draft := env.createDraft(t, twoSigners(), signatureFieldsFor("alice@example.com", "bob@example.com"))
	tokens := sendAndTokens(t, env, draft)

	// Alice signs before the correction; her state must not carry over.
	doc, alice, _ := env.docs.GetByToken(ctx, tokens["alice@example.com"])
	if _, _, err := env.signing.Sign(ctx, SignInput{
		Token:  tokens["alice@example.com"],
		Values: []FieldValue{{FieldID: fieldIDFor(doc, alice.ID), Value: "Alice A."}},
	}); err != nil {
		t.Fatalf("sign: %v", err)
	}

	successor, err := corrections.Correct(ctx, CorrectInput{TeamID: "team-1", DocID: draft.ID})
	if err != nil {
		t.Fatalf("correct: %v", err)
	}

	voided, _ := env.docs.Get(ctx, draft.ID)
	if voided.Status != domain.StatusVoided || voided.VoidReason != CorrectionReason {
		t.Fatalf("predecessor = %+v", voided)
	}

	if successor.Status != domain.StatusDraft {
		t.Fatalf("successor status = %s, want draft", successor.Status)
	}
	if successor.ID == draft.ID {
		t.Fatal("successor reused the predecessor id")
	}
	if successor.Title != "Mutual NDA (corrected)" {
		t.Fatalf("successor title = %q", successor.Title)
	}
	for _, r := range successor.Recipients {
		if r.Status != domain.RecipientPending {
			t.Fatalf("recipient %s status = %s, want pending", r.Email, r.Status)
		}
		if r.SigningToken != "" {
			t.Fatalf("recipient %s kept a signing token", r.Email)
		}
	}

	// Fields remapped through email identity onto the new recipient ids.
	newIDByEmail := map[string]string{}
	for _, r := range successor.Recipients {
		newIDByEmail[r.Email] = r.ID
	}
	if len(successor.Fields) != 2 {
		t.Fatalf("successor fields = %d, want 2", len(successor.Fields))
	}
	seen := map[string]bool{}
	for _, f := range successor.Fields {
		seen[f.RecipientID] = true
		if f.Value != "" || f.FilledAt != nil {
			t.Fatalf("field %s kept a filled value", f.ID)
		}
	}
	if !seen[newIDByEmail["alice@example.com"]] || !seen[newIDByEmail["bob@example.com"]] {
		t.Fatalf("fields bound to %v, want new recipient ids", seen)
	}
}

func TestCorrectGuards(t *testing.T) {
	env := newTestEnv(t)
	corrections := newCorrectionService(env)
	ctx := context.Background()

	draft := env.createDraft(t, twoSigners(), nil)
	if _, err := corrections.Correct(ctx, CorrectInput{TeamID: "team-1", DocID: draft.ID}); !errors.Is(err, domain.ErrCorrectDraft) {
		t.Fatalf("draft correct err = %v, want ErrCorrectDraft", err)
	}

	completed := env.createDraft(t, []RecipientInput{{Name: "Alice", Email: "alice@example.com"}}, signatureFieldsFor("alice@example.com"))
	tokens := sendAndTokens(t, env, completed)
	doc, alice, _ := env.docs.GetByToken(ctx, tokens["alice@example.com"])
	if _, _, err := env.signing.Sign(ctx, SignInput{
		Token:  tokens["alice@example.com"],
		Values: []FieldValue{{FieldID: fieldIDFor(doc, alice.ID), Value: "Alice A."}},
	}); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := corrections.Correct(ctx, CorrectInput{TeamID: "team-1", DocID: completed.ID}); !errors.Is(err, domain.ErrVoidCompleted) {
		t.Fatalf("completed correct err = %v, want ErrVoidCompleted", err)
	}

	if _, err := corrections.Correct(ctx, CorrectInput{TeamID: "team-2", DocID: draft.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-team correct err = %v, want ErrNotFound", err)
	}
}

func TestCorrectRollsBackWhenCloneFails(t *testing.T) {
	env := newTestEnv(t)
	corrections := newCorrectionService(env)
	ctx := context.Background()

	draft := env.createDraft(t, twoSigners(), nil)
	sendAndTokens(t, env, draft)

	env.docs.failCreate = true
	_, err := corrections.Correct(ctx, CorrectInput{TeamID: "team-1", DocID: draft.ID})
	if err == nil {
		t.Fatal("correct succeeded despite clone failure")
	}

	// The predecessor's void must have rolled back with the clone.
	doc, getErr := env.docs.Get(ctx, draft.ID)
	if getErr != nil {
		t.Fatalf("get: %v", getErr)
	}
	if doc.Status != domain.StatusSent {
		t.Fatalf("status = %s, want sent after rollback", doc.Status)
	}
}
