package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/azaliaz/bookverse/internal/domain/models"
)

func TestCan(t *testing.T) {
	owner := models.Identity{UserID: "u1", Username: "alice"}
	other := models.Identity{UserID: "u2", Username: "bob"}
	book := models.Book{BID: "b1", OwnerUID: "u1"}
	review := models.Review{RID: "r1", AuthorUID: "u2"}

	tests := []struct {
		name    string
		who     models.Identity
		action  Action
		res     Resource
		wantErr error
	}{
		{"owner updates book", owner, ActionUpdate, book, nil},
		{"owner deletes book", owner, ActionDelete, book, nil},
		{"stranger updates book", other, ActionUpdate, book, ErrForbidden},
		{"stranger deletes book", other, ActionDelete, book, ErrForbidden},
		{"stranger tracks progress", other, ActionTrackProgress, book, nil},
		{"author edits review", other, ActionUpdate, review, nil},
		{"non-author deletes review", owner, ActionDelete, review, ErrForbidden},
		{"anonymous", models.Identity{}, ActionTrackProgress, book, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Can(tt.who, tt.action, tt.res), tt.wantErr)
		})
	}
}
