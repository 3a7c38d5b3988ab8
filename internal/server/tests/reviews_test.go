package tests

import (
	"errors"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/server/mocks"
	storerrros "github.com/azaliaz/bookverse/internal/storage/errors"
)

func TestServer_allReviews(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStorage := mocks.NewMockStorage(ctrl)
	router := newServer(mockStorage).Router()

	t.Run("by book", func(t *testing.T) {
		mockStorage.EXPECT().GetReviews(gomock.Any(), "b1").
			Return([]models.Review{{RID: "r1", BookID: "b1", Rating: 5, Content: "great"}}, nil)

		w := doRequest(router, http.MethodGet, "/api/reviews?bookId=b1", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "great")
	})

	t.Run("all", func(t *testing.T) {
		mockStorage.EXPECT().GetReviews(gomock.Any(), "").Return([]models.Review{}, nil)

		w := doRequest(router, http.MethodGet, "/api/reviews", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", w.Body.String())
	})
}

func TestServer_addReview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStorage := mocks.NewMockStorage(ctrl)
	router := newServer(mockStorage).Router()
	token := tokenFor(t, "reader", "bob")

	t.Run("success recomputes rating", func(t *testing.T) {
		gomock.InOrder(
			mockStorage.EXPECT().GetBook(gomock.Any(), "b1").Return(models.Book{BID: "b1"}, nil),
			mockStorage.EXPECT().
				SaveReview(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ any, r models.Review) (models.Review, error) {
					assert.Equal(t, "reader", r.AuthorUID)
					assert.Equal(t, "bob", r.Username)
					r.RID = "r2"
					return r, nil
				}),
			mockStorage.EXPECT().GetReviews(gomock.Any(), "b1").
				Return([]models.Review{{Rating: 4}, {Rating: 5}}, nil),
			mockStorage.EXPECT().SetBookRating(gomock.Any(), "b1", 4.5).Return(nil),
		)

		w := doRequest(router, http.MethodPost, "/api/reviews", `{"bookId":"b1","rating":5,"content":"great"}`, token)
		require.Equal(t, http.StatusCreated, w.Code)
		review := decode[models.Review](t, w)
		assert.Equal(t, "r2", review.RID)
		assert.Equal(t, "reader", review.AuthorUID)
	})

	for name, body := range map[string]string{
		"rating too high": `{"bookId":"b1","rating":6,"content":"x"}`,
		"rating too low":  `{"bookId":"b1","rating":0,"content":"x"}`,
		"no content":      `{"bookId":"b1","rating":3}`,
		"no book":         `{"rating":3,"content":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/reviews", body, token)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	t.Run("unknown book", func(t *testing.T) {
		mockStorage.EXPECT().GetBook(gomock.Any(), "ghost").Return(models.Book{}, storerrros.ErrBookNoExist)

		w := doRequest(router, http.MethodPost, "/api/reviews", `{"bookId":"ghost","rating":3,"content":"x"}`, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Book not found", message(t, w))
	})

	t.Run("book vanished before rollup", func(t *testing.T) {
		mockStorage.EXPECT().GetBook(gomock.Any(), "b1").Return(models.Book{BID: "b1"}, nil)
		mockStorage.EXPECT().SaveReview(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, r models.Review) (models.Review, error) { return r, nil })
		mockStorage.EXPECT().GetReviews(gomock.Any(), "b1").Return([]models.Review{{Rating: 3}}, nil)
		mockStorage.EXPECT().SetBookRating(gomock.Any(), "b1", 3.0).Return(storerrros.ErrBookNoExist)

		w := doRequest(router, http.MethodPost, "/api/reviews", `{"bookId":"b1","rating":3,"content":"x"}`, token)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestServer_updateReview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStorage := mocks.NewMockStorage(ctrl)
	router := newServer(mockStorage).Router()
	stored := models.Review{RID: "r1", BookID: "b1", Rating: 5, Content: "great", AuthorUID: "author"}

	t.Run("author", func(t *testing.T) {
		mockStorage.EXPECT().GetReview(gomock.Any(), "r1").Return(stored, nil)
		mockStorage.EXPECT().
			UpdateReview(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, r models.Review) (models.Review, error) {
				assert.Equal(t, 3, r.Rating)
				assert.Equal(t, "great", r.Content)
				return r, nil
			})
		mockStorage.EXPECT().GetReviews(gomock.Any(), "b1").Return([]models.Review{{Rating: 3}, {Rating: 4}}, nil)
		mockStorage.EXPECT().SetBookRating(gomock.Any(), "b1", 3.5).Return(nil)

		w := doRequest(router, http.MethodPut, "/api/reviews/r1", `{"rating":3}`, tokenFor(t, "author", "alice"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("stranger", func(t *testing.T) {
		mockStorage.EXPECT().GetReview(gomock.Any(), "r1").Return(stored, nil)

		w := doRequest(router, http.MethodPut, "/api/reviews/r1", `{"rating":1}`, tokenFor(t, "other", "mallory"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("rating out of range", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/api/reviews/r1", `{"rating":9}`, tokenFor(t, "author", "alice"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Rating must be between 1 and 5", message(t, w))
	})

	t.Run("missing", func(t *testing.T) {
		mockStorage.EXPECT().GetReview(gomock.Any(), "r9").Return(models.Review{}, storerrros.ErrReviewNoExist)

		w := doRequest(router, http.MethodPut, "/api/reviews/r9", `{"rating":2}`, tokenFor(t, "author", "alice"))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Review not found", message(t, w))
	})
}

func TestServer_removeReview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStorage := mocks.NewMockStorage(ctrl)
	router := newServer(mockStorage).Router()
	stored := models.Review{RID: "r1", BookID: "b1", Rating: 5, AuthorUID: "author"}

	t.Run("last review resets rating", func(t *testing.T) {
		mockStorage.EXPECT().GetReview(gomock.Any(), "r1").Return(stored, nil)
		mockStorage.EXPECT().DeleteReview(gomock.Any(), "r1").Return(nil)
		mockStorage.EXPECT().GetReviews(gomock.Any(), "b1").Return([]models.Review{}, nil)
		mockStorage.EXPECT().SetBookRating(gomock.Any(), "b1", 0.0).Return(nil)

		w := doRequest(router, http.MethodDelete, "/api/reviews/r1", "", tokenFor(t, "author", "alice"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Review deleted successfully", message(t, w))
	})

	t.Run("rollup failure", func(t *testing.T) {
		mockStorage.EXPECT().GetReview(gomock.Any(), "r1").Return(stored, nil)
		mockStorage.EXPECT().DeleteReview(gomock.Any(), "r1").Return(nil)
		mockStorage.EXPECT().GetReviews(gomock.Any(), "b1").Return(nil, errors.New("db error"))

		w := doRequest(router, http.MethodDelete, "/api/reviews/r1", "", tokenFor(t, "author", "alice"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("stranger", func(t *testing.T) {
		mockStorage.EXPECT().GetReview(gomock.Any(), "r1").Return(stored, nil)

		w := doRequest(router, http.MethodDelete, "/api/reviews/r1", "", tokenFor(t, "other", "mallory"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
