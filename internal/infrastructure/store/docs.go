package store

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/certenio/pending-discovery/internal/domain/models"
)

// pendingActionDoc is the Firestore-native mirror of
// models.PendingActionDoc. Optional fields use pointers/omitempty so
// undefined values are never serialized, per the store's "fields with
// undefined values must not be serialized" requirement.
type pendingActionDoc struct {
	TxHash               string                `firestore:"txHash"`
	TxID                 string                `firestore:"txId"`
	Principal            string                `firestore:"principal"`
	Type                 string                `firestore:"type"`
	Category             string                `firestore:"category"`
	Status               string                `firestore:"status"`
	UrgencyLevel         string                `firestore:"urgencyLevel"`
	TimeRemainingMs      int64               `firestore:"timeRemainingMs"`
	IsExpiring           bool                `firestore:"isExpiring"`
	ExpiresAt            *time.Time          `firestore:"expiresAt,omitempty"`
	Signatures           []renderedSignature `firestore:"signatures"`
	EligibleSigningPaths []string            `firestore:"eligibleSigningPaths"`
	UserHasSigned        bool                `firestore:"userHasSigned"`
	Network              string              `firestore:"network,omitempty"`
	CreatedAt            time.Time           `firestore:"createdAt"`
	UpdatedAt            time.Time           `firestore:"updatedAt"`
}

type renderedSignature struct {
	Signer        string    `firestore:"signer"`
	PublicKeyHash string    `firestore:"publicKeyHash,omitempty"`
	Vote          string    `firestore:"vote"`
	SignedAt      time.Time `firestore:"signedAt"`
}

type computedInboxSummaryDoc struct {
	Total              int       `firestore:"total"`
	UrgentCount        int       `firestore:"urgentCount"`
	InitiatedByUser    int       `firestore:"initiatedByUser"`
	RequiringSignature int       `firestore:"requiringSignature"`
	TxHashes           []string  `firestore:"txHashes"`
	CycleToken         string    `firestore:"cycleToken"`
	ComputedAt         time.Time `firestore:"computedAt"`
	DurationMs         int64     `firestore:"durationMs"`
}

func fromDomainPendingAction(d models.PendingActionDoc) pendingActionDoc {
	sigs := make([]renderedSignature, 0, len(d.Signatures))
	for _, s := range d.Signatures {
		sigs = append(sigs, renderedSignature{
			Signer:        s.Signer,
			PublicKeyHash: s.PublicKeyHash,
			Vote:          string(s.Vote),
			SignedAt:      s.SignedAt,
		})
	}
	return pendingActionDoc{
		TxHash:               d.TxHash,
		TxID:                 d.TxID,
		Principal:            d.Principal,
		Type:                 d.Type,
		Category:             string(d.Category),
		Status:               string(d.Status),
		UrgencyLevel:         string(d.UrgencyLevel),
		TimeRemainingMs:      d.TimeRemaining.Milliseconds(),
		IsExpiring:           d.IsExpiring,
		ExpiresAt:            d.ExpiresAt,
		Signatures:           sigs,
		EligibleSigningPaths: d.EligibleSigningPaths,
		UserHasSigned:        d.UserHasSigned,
		Network:              d.Network,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

func (pad pendingActionDoc) toDomain() models.PendingActionDoc {
	sigs := make([]models.RenderedSignature, 0, len(pad.Signatures))
	for _, s := range pad.Signatures {
		sigs = append(sigs, models.RenderedSignature{
			Signer:        s.Signer,
			PublicKeyHash: s.PublicKeyHash,
			Vote:          models.Vote(s.Vote),
			SignedAt:      s.SignedAt,
		})
	}
	return models.PendingActionDoc{
		TxHash:               pad.TxHash,
		TxID:                 pad.TxID,
		Principal:            pad.Principal,
		Type:                 pad.Type,
		Category:             models.Category(pad.Category),
		Status:               models.DocStatus(pad.Status),
		UrgencyLevel:         models.UrgencyLevel(pad.UrgencyLevel),
		TimeRemaining:        time.Duration(pad.TimeRemainingMs) * time.Millisecond,
		IsExpiring:           pad.IsExpiring,
		ExpiresAt:            pad.ExpiresAt,
		Signatures:           sigs,
		EligibleSigningPaths: pad.EligibleSigningPaths,
		UserHasSigned:        pad.UserHasSigned,
		Network:              pad.Network,
		CreatedAt:            pad.CreatedAt,
		UpdatedAt:            pad.UpdatedAt,
	}
}

func fromDomainSummary(s models.ComputedInboxSummary) computedInboxSummaryDoc {
	return computedInboxSummaryDoc{
		Total:              s.Total,
		UrgentCount:        s.UrgentCount,
		InitiatedByUser:    s.InitiatedByUser,
		RequiringSignature: s.RequiringSignature,
		TxHashes:           s.TxHashes,
		CycleToken:         s.CycleToken,
		ComputedAt:         s.ComputedAt,
		DurationMs:         s.DurationMs,
	}
}

func (s computedInboxSummaryDoc) toDomain() models.ComputedInboxSummary {
	return models.ComputedInboxSummary{
		Total:              s.Total,
		UrgentCount:        s.UrgentCount,
		InitiatedByUser:    s.InitiatedByUser,
		RequiringSignature: s.RequiringSignature,
		TxHashes:           s.TxHashes,
		CycleToken:         s.CycleToken,
		ComputedAt:         s.ComputedAt,
		DurationMs:         s.DurationMs,
	}
}

// firestoreNotFound reports whether err is a Firestore "document not
// found" gRPC status, letting callers treat a missing summary doc as
// the zero value instead of an error.
func firestoreNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}
