// Package access decides whether an identity may perform an action on an
// owned resource. All ownership checks of the API go through Can.
package access

import (
	"errors"

	"github.com/azaliaz/bookverse/internal/domain/models"
)

var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionTrackProgress Action = "track-progress"
)

// Resource is anything that records the user who created it.
type Resource interface {
	OwnerID() string
}

// ownerOnly lists the actions reserved for the resource owner. Actions not
// listed here are open to any authenticated identity.
var ownerOnly = map[Action]bool{
	ActionUpdate: true,
	ActionDelete: true,
}

func Can(who models.Identity, action Action, res Resource) error {
	if who.UserID == "" {
		return ErrForbidden
	}
	if ownerOnly[action] && res.OwnerID() != who.UserID {
		return ErrForbidden
	}
	return nil
}
