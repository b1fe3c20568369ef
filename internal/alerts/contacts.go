package alerts

import (
	"context"
	"strings"

	"github.com/devphilip/clausewatch/pkg/models"
)

// ContactResolver looks up the contact methods of a contract's owner.
// A contract without an owner resolves to empty lists, never an error.
type ContactResolver interface {
	Resolve(ctx context.Context, contractID models.ContractID) (models.Contacts, error)
}

// ownerContactSource is the read-only join the resolver consumes.
type ownerContactSource interface {
	GetOwnerContact(ctx context.Context, id models.ContractID) (email, phone string, err error)
}

// StoreContactResolver resolves contacts through the contracts/users join
// in the database.
type StoreContactResolver struct {
	store ownerContactSource
}

// NewStoreContactResolver returns a resolver backed by the given store.
func NewStoreContactResolver(store ownerContactSource) *StoreContactResolver {
	return &StoreContactResolver{store: store}
}

// Resolve returns the owner's emails and phones. Multi-valued fields stored
// as comma-separated strings are split, trimmed, and stripped of empties.
func (r *StoreContactResolver) Resolve(ctx context.Context, contractID models.ContractID) (models.Contacts, error) {
	email, phone, err := r.store.GetOwnerContact(ctx, contractID)
	if err != nil {
		return models.Contacts{}, err
	}
	return models.Contacts{
		Emails: splitContactField(email),
		Phones: splitContactField(phone),
	}, nil
}

func splitContactField(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
