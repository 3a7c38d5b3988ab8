package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azaliaz/bookverse/internal/config"
	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/server"
	"github.com/azaliaz/bookverse/internal/storage"
)

func newTestAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := server.New(config.Config{JWTSecret: "client-test"}, storage.New())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestClient_Flow(t *testing.T) {
	ctx := context.Background()
	base := newTestAPI(t)

	alice := New(base)
	auth, err := alice.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", auth.User.Username)
	assert.Equal(t, auth.Token, alice.Token())

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.User.ID, me.UID)

	book, err := alice.AddBook(ctx, NewBook{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWantToRead, book.ReadingStatus)

	status := models.StatusReading
	book, err = alice.UpdateProgress(ctx, book.BID, models.ProgressPatch{
		ReadingStatus: &status,
		Progress:      &models.Progress{Current: 12, Total: 600},
	})
	require.NoError(t, err)
	assert.NotNil(t, book.StartedDate)

	bob := New(base)
	_, err = bob.Register(ctx, "bob", "bob@example.com", "secret2")
	require.NoError(t, err)

	_, err = alice.AddReview(ctx, book.BID, 4, "slow start")
	require.NoError(t, err)
	review, err := bob.AddReview(ctx, book.BID, 5, "classic")
	require.NoError(t, err)

	got, err := bob.Book(ctx, book.BID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Rating)

	rating := 4
	_, err = bob.UpdateReview(ctx, review.RID, models.ReviewPatch{Rating: &rating})
	require.NoError(t, err)

	title := "Not yours"
	_, err = bob.UpdateBook(ctx, book.BID, models.BookPatch{Title: &title})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	books, err := bob.Books(ctx, models.BookFilter{Genres: []string{"sci-fi"}, SortBy: models.SortRating})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 4.0, books[0].Rating)

	msg, err := alice.DeleteBook(ctx, book.BID)
	require.NoError(t, err)
	require.NotNil(t, msg)

	reviews, err := alice.Reviews(ctx, book.BID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := New(newTestAPI(t))

	_, err := c.Login(ctx, "nobody@example.com", "secret1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid email or password", apiErr.Message)

	_, err = c.Me(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	// DeleteBook swallows failures
	msg, err := c.DeleteBook(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, msg)

	err = c.DeleteReview(ctx, "missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
