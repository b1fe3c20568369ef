package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/devphilip/clausewatch/pkg/models"
)

func TestCreateAndGetContract(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	renewal := time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC)
	contract := &models.Contract{
		ID:           "c-acme-msa",
		Title:        "Acme Master Services Agreement",
		Counterparty: "Acme Corp",
		RenewalAt:    &renewal,
	}
	if err := db.CreateContract(ctx, contract); err != nil {
		t.Fatalf("CreateContract failed: %v", err)
	}
	if contract.CreatedAt.IsZero() {
		t.Error("expected created_at to be populated")
	}

	got, err := db.GetContract(ctx, "c-acme-msa")
	if err != nil {
		t.Fatalf("GetContract failed: %v", err)
	}
	if got.Title != contract.Title {
		t.Errorf("expected title %q, got %q", contract.Title, got.Title)
	}
	if got.Counterparty != "Acme Corp" {
		t.Errorf("expected counterparty, got %q", got.Counterparty)
	}
	if got.RenewalAt == nil {
		t.Error("expected renewal_at to round-trip")
	}
	if got.UserID != nil {
		t.Errorf("expected no owner, got user %d", *got.UserID)
	}
}

func TestGetContract_NotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetContract(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOwnerContact(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner := &models.User{
		Email:       "dana@acme.com",
		PhoneNumber: "+15551230001",
		FullName:    "Dana Reyes",
	}
	if err := db.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	seedContract(t, db, "c-owned", &owner.ID)
	seedContract(t, db, "c-unclaimed", nil)

	t.Run("owned contract", func(t *testing.T) {
		email, phone, err := db.GetOwnerContact(ctx, "c-owned")
		if err != nil {
			t.Fatalf("GetOwnerContact failed: %v", err)
		}
		if email != "dana@acme.com" || phone != "+15551230001" {
			t.Errorf("unexpected contact: email=%q phone=%q", email, phone)
		}
	})

	t.Run("unclaimed contract", func(t *testing.T) {
		email, phone, err := db.GetOwnerContact(ctx, "c-unclaimed")
		if err != nil {
			t.Fatalf("GetOwnerContact failed: %v", err)
		}
		if email != "" || phone != "" {
			t.Errorf("expected empty contact, got email=%q phone=%q", email, phone)
		}
	})

	t.Run("missing contract", func(t *testing.T) {
		email, phone, err := db.GetOwnerContact(ctx, "no-such-contract")
		if err != nil {
			t.Fatalf("expected no error for missing contract, got %v", err)
		}
		if email != "" || phone != "" {
			t.Errorf("expected empty contact, got email=%q phone=%q", email, phone)
		}
	})
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &models.User{Email: "sam@acme.com"}
	if err := db.CreateUser(ctx, first); err != nil {
		t.Fatalf("first CreateUser failed: %v", err)
	}
	if first.ID == 0 {
		t.Error("expected user ID to be populated")
	}

	dup := &models.User{Email: "sam@acme.com"}
	err := db.CreateUser(ctx, dup)
	if err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already-exists error, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "lee@acme.com", FullName: "Lee Park"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := db.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "lee@acme.com" || got.FullName != "Lee Park" {
		t.Errorf("unexpected user: %+v", got)
	}

	if _, err := db.GetUser(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
