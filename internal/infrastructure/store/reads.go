package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/certenio/pending-discovery/internal/domain/models"
)

type userDoc struct {
	Email              string `firestore:"email"`
	DisplayName        string `firestore:"displayName"`
	DefaultIdentity    string `firestore:"defaultIdentity"`
	OnboardingComplete bool   `firestore:"onboardingComplete"`
	KeyVaultSetup      bool   `firestore:"keyVaultSetup"`
}

type identityDoc struct {
	IdentityURL   string           `firestore:"identityURL"`
	KeyBooks      []keyBookDoc     `firestore:"keyBooks"`
	Accounts      []accountStubDoc `firestore:"accounts"`
	CreditBalance int64            `firestore:"creditBalance"`
}

type accountStubDoc struct {
	URL  string `firestore:"url"`
	Type string `firestore:"type"`
}

type keyBookDoc struct {
	URL   string       `firestore:"url"`
	Pages []keyPageDoc `firestore:"pages"`
}

type keyPageDoc struct {
	URL           string        `firestore:"url"`
	Version       int64         `firestore:"version"`
	Threshold     int64         `firestore:"threshold"`
	CreditBalance int64         `firestore:"creditBalance"`
	Entries       []keyEntryDoc `firestore:"entries"`
}

type keyEntryDoc struct {
	Kind          string `firestore:"kind"`
	PublicKeyHash string `firestore:"publicKeyHash,omitempty"`
	DelegateURL   string `firestore:"delegateURL,omitempty"`
}

// ListUsersWithIdentities returns every user with both onboarding
// gating flags set, each with its stored identities and key-books.
func (s *Store) ListUsersWithIdentities(ctx context.Context) ([]models.User, error) {
	iter := s.client.Collection(s.usersCol).
		Where("onboardingComplete", "==", true).
		Where("keyVaultSetup", "==", true).
		Documents(ctx)
	defer iter.Stop()

	var users []models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}

		var raw userDoc
		if err := doc.DataTo(&raw); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
		}

		identities, err := s.identitiesFor(ctx, doc.Ref)
		if err != nil {
			return nil, fmt.Errorf("load identities for user %s: %w", doc.Ref.ID, err)
		}

		users = append(users, models.User{
			UID:                doc.Ref.ID,
			Email:              raw.Email,
			DisplayName:        raw.DisplayName,
			DefaultIdentity:    raw.DefaultIdentity,
			OnboardingComplete: raw.OnboardingComplete,
			KeyVaultSetup:      raw.KeyVaultSetup,
			Identities:         identities,
		})
	}
	return users, nil
}

func (s *Store) identitiesFor(ctx context.Context, userRef *firestore.DocumentRef) ([]models.Identity, error) {
	iter := userRef.Collection("adis").Documents(ctx)
	defer iter.Stop()

	var out []models.Identity
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var raw identityDoc
		if err := doc.DataTo(&raw); err != nil {
			return nil, err
		}

		identity := models.Identity{
			IdentityURL:   raw.IdentityURL,
			CreditBalance: raw.CreditBalance,
		}
		for _, a := range raw.Accounts {
			identity.Accounts = append(identity.Accounts, models.AccountStub{URL: a.URL, Type: a.Type})
		}
		for _, b := range raw.KeyBooks {
			book := models.KeyBook{URL: b.URL}
			for _, p := range b.Pages {
				page := models.KeyPage{
					URL:           p.URL,
					Version:       uint64(p.Version),
					Threshold:     uint64(p.Threshold),
					CreditBalance: p.CreditBalance,
				}
				for _, e := range p.Entries {
					entry := models.KeyEntry{PublicKeyHash: e.PublicKeyHash, DelegateURL: e.DelegateURL}
					if e.Kind == "delegate" {
						entry.Kind = models.KeyEntryKindDelegate
					} else {
						entry.Kind = models.KeyEntryKindKey
					}
					page.Entries = append(page.Entries, entry)
				}
				book.Pages = append(book.Pages, page)
			}
			identity.KeyBooks = append(identity.KeyBooks, book)
		}

		out = append(out, identity)
	}
	return out, nil
}

// GetInbox returns the current pendingActions documents for uid, keyed
// by their document ID (the normalized transaction hash).
func (s *Store) GetInbox(ctx context.Context, uid string) (map[string]models.PendingActionDoc, error) {
	iter := s.client.Collection(s.usersCol).Doc(uid).Collection("pendingActions").Documents(ctx)
	defer iter.Stop()

	docs := map[string]models.PendingActionDoc{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("get inbox for %s: %w", uid, err)
		}
		var pad pendingActionDoc
		if err := doc.DataTo(&pad); err != nil {
			return nil, fmt.Errorf("decode pending action %s: %w", doc.Ref.ID, err)
		}
		docs[doc.Ref.ID] = pad.toDomain()
	}
	return docs, nil
}

// GetSummary returns the current computed-state summary for uid, or
// the zero value if none has ever been written.
func (s *Store) GetSummary(ctx context.Context, uid string) (models.ComputedInboxSummary, error) {
	doc, err := s.client.Collection(s.usersCol).Doc(uid).Collection("computedState").Doc("pending").Get(ctx)
	if err != nil {
		if firestoreNotFound(err) {
			return models.ComputedInboxSummary{}, nil
		}
		return models.ComputedInboxSummary{}, fmt.Errorf("get summary for %s: %w", uid, err)
	}
	var raw computedInboxSummaryDoc
	if err := doc.DataTo(&raw); err != nil {
		return models.ComputedInboxSummary{}, fmt.Errorf("decode summary for %s: %w", uid, err)
	}
	return raw.toDomain(), nil
}
