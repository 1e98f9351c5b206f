package offers

import (
	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
)

// actorConstraint names who may drive a given transition.
type actorConstraint int

const (
	anyRider actorConstraint = iota
	assignedRider
	owningBusiness
	ownerOrAssignedRider
)

type transitionRule struct {
	target enums.OfferStatus
	actor  actorConstraint
}

// transitionTable is the authoritative lifecycle. Terminal states carry no
// entry and therefore admit nothing.
var transitionTable = map[enums.OfferStatus][]transitionRule{
	enums.OfferStatusOpen: {
		{target: enums.OfferStatusAccepted, actor: anyRider},
	},
	enums.OfferStatusAccepted: {
		{target: enums.OfferStatusPickedUp, actor: assignedRider},
		{target: enums.OfferStatusCancelled, actor: owningBusiness},
	},
	enums.OfferStatusPickedUp: {
		{target: enums.OfferStatusInTransit, actor: assignedRider},
		{target: enums.OfferStatusCancelled, actor: owningBusiness},
	},
	enums.OfferStatusInTransit: {
		{target: enums.OfferStatusDelivered, actor: assignedRider},
		{target: enums.OfferStatusCancelled, actor: owningBusiness},
	},
	enums.OfferStatusDelivered: {
		{target: enums.OfferStatusCompleted, actor: ownerOrAssignedRider},
	},
}

// ValidNextStatuses returns the reachable targets from the given status, in
// table order.
func ValidNextStatuses(from enums.OfferStatus) []enums.OfferStatus {
	rules := transitionTable[from]
	targets := make([]enums.OfferStatus, 0, len(rules))
	for _, rule := range rules {
		targets = append(targets, rule.target)
	}
	return targets
}

func findRule(from, to enums.OfferStatus) (transitionRule, bool) {
	for _, rule := range transitionTable[from] {
		if rule.target == to {
			return rule, true
		}
	}
	return transitionRule{}, false
}

// invalidTransition builds the client-correctable rejection carrying the
// current status and the set of valid next states.
func invalidTransition(current enums.OfferStatus, message string) error {
	next := ValidNextStatuses(current)
	validNext := make([]string, 0, len(next))
	for _, status := range next {
		validNext = append(validNext, status.String())
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, message).WithDetails(map[string]any{
		"current_status": current.String(),
		"valid_next":     validNext,
	})
}

// authorizeTransition checks the rule's actor constraint against the caller.
func authorizeTransition(rule transitionRule, offer *models.Offer, actorID uuid.UUID, role enums.ActorRole) error {
	switch rule.actor {
	case anyRider:
		if role != enums.ActorRoleRider {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only riders may accept offers")
		}
	case assignedRider:
		if role != enums.ActorRoleRider || offer.AcceptedBy == nil || *offer.AcceptedBy != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned rider may advance this offer")
		}
	case owningBusiness:
		if role != enums.ActorRoleBusiness || offer.BusinessID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owning business may perform this transition")
		}
	case ownerOrAssignedRider:
		isOwner := role == enums.ActorRoleBusiness && offer.BusinessID == actorID
		isAssigned := role == enums.ActorRoleRider && offer.AcceptedBy != nil && *offer.AcceptedBy == actorID
		if !isOwner && !isAssigned {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or assigned rider may perform this transition")
		}
	}
	return nil
}
