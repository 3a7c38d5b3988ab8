package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/storage"
)

// apiClient drives the real router over an in-memory store.
type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *apiClient {
	return &apiClient{t: t, router: newServer(storage.New()).Router()}
}

func (a *apiClient) register(name string) string {
	a.t.Helper()
	w := doRequest(a.router, http.MethodPost, "/api/auth/register",
		fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"secret1"}`, name, name), "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](a.t, w)["token"].(string)
}

func (a *apiClient) addBook(token, body string) models.Book {
	a.t.Helper()
	w := doRequest(a.router, http.MethodPost, "/api/books", body, token)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Book](a.t, w)
}

func (a *apiClient) addReview(token, bookID string, rating int) models.Review {
	a.t.Helper()
	w := doRequest(a.router, http.MethodPost, "/api/reviews",
		fmt.Sprintf(`{"bookId":%q,"rating":%d,"content":"thoughts"}`, bookID, rating), token)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Review](a.t, w)
}

func (a *apiClient) book(id string) models.Book {
	a.t.Helper()
	w := doRequest(a.router, http.MethodGet, "/api/books/"+id, "", "")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.Book](a.t, w)
}

func TestAPI_RegisterThenLogin(t *testing.T) {
	api := newAPI(t)
	api.register("alice")

	w := doRequest(api.router, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]any](t, w)["token"].(string)

	w = doRequest(api.router, http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"alice@example.com"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = doRequest(api.router, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"wrong!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(api.router, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"new@example.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already taken", message(t, w))
}

func TestAPI_OwnershipIsEnforced(t *testing.T) {
	api := newAPI(t)
	owner := api.register("owner")
	stranger := api.register("stranger")
	book := api.addBook(owner, `{"title":"Dune","author":"Frank Herbert"}`)

	w := doRequest(api.router, http.MethodPut, "/api/books/"+book.BID, `{"title":"Stolen"}`, stranger)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doRequest(api.router, http.MethodDelete, "/api/books/"+book.BID, "", stranger)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, "Dune", api.book(book.BID).Title)

	review := api.addReview(owner, book.BID, 5)
	w = doRequest(api.router, http.MethodPut, "/api/reviews/"+review.RID, `{"rating":1}`, stranger)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 5.0, api.book(book.BID).Rating)
}

func TestAPI_RatingRollup(t *testing.T) {
	api := newAPI(t)
	alice := api.register("alice")
	bob := api.register("bob")
	book := api.addBook(alice, `{"title":"Dune","author":"Frank Herbert","genre":"Sci-Fi"}`)
	assert.Zero(t, book.Rating)

	api.addReview(alice, book.BID, 4)
	bobs := api.addReview(bob, book.BID, 5)
	assert.Equal(t, 4.5, api.book(book.BID).Rating)

	w := doRequest(api.router, http.MethodPut, "/api/reviews/"+bobs.RID, `{"rating":4}`, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.0, api.book(book.BID).Rating)

	w = doRequest(api.router, http.MethodDelete, "/api/reviews/"+bobs.RID, "", bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.0, api.book(book.BID).Rating)

	// owner edits never touch the rating
	w = doRequest(api.router, http.MethodPut, "/api/books/"+book.BID, `{"description":"spice"}`, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.0, decode[models.Book](t, w).Rating)
}

func TestAPI_DeleteCascades(t *testing.T) {
	api := newAPI(t)
	owner := api.register("owner")
	reader := api.register("reader")
	book := api.addBook(owner, `{"title":"Dune","author":"Frank Herbert"}`)
	api.addReview(owner, book.BID, 3)
	api.addReview(reader, book.BID, 5)

	w := doRequest(api.router, http.MethodDelete, "/api/books/"+book.BID, "", owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(api.router, http.MethodGet, "/api/reviews?bookId="+book.BID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = doRequest(api.router, http.MethodGet, "/api/books/"+book.BID, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_ListRoundTrip(t *testing.T) {
	api := newAPI(t)
	token := api.register("alice")
	api.addBook(token, `{"title":"Dune","author":"Frank Herbert","genre":"Sci-Fi"}`)
	api.addBook(token, `{"title":"Emma","author":"Jane Austen","genre":"Classic"}`)
	api.addBook(token, `{"title":"Anathem","author":"Neal Stephenson","genre":"Sci-Fi"}`)

	w := doRequest(api.router, http.MethodGet, "/api/books?genre=Sci-Fi&sort_by=title", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	books := decode[[]models.Book](t, w)
	require.Len(t, books, 2)
	assert.Equal(t, "Anathem", books[0].Title)
	assert.Equal(t, "Dune", books[1].Title)

	w = doRequest(api.router, http.MethodGet, "/api/books?search=austen", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	books = decode[[]models.Book](t, w)
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Title)
}

func TestAPI_ProgressTracking(t *testing.T) {
	api := newAPI(t)
	owner := api.register("owner")
	book := api.addBook(owner, `{"title":"Dune","author":"Frank Herbert"}`)
	assert.Equal(t, models.StatusWantToRead, book.ReadingStatus)

	w := doRequest(api.router, http.MethodPatch, "/api/books/"+book.BID+"/progress",
		`{"readingStatus":"reading","progress":{"current":50,"total":400}}`, owner)
	require.Equal(t, http.StatusOK, w.Code)
	reading := decode[models.Book](t, w)
	require.NotNil(t, reading.StartedDate)

	w = doRequest(api.router, http.MethodPatch, "/api/books/"+book.BID+"/progress",
		`{"readingStatus":"completed"}`, owner)
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[models.Book](t, w)
	require.NotNil(t, done.CompletedDate)
	assert.True(t, done.StartedDate.Equal(*reading.StartedDate))
	assert.Equal(t, 50, done.Progress.Current)
}

func TestAPI_Health(t *testing.T) {
	api := newAPI(t)
	w := doRequest(api.router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(api.router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bookverse_http_requests_total")
}
