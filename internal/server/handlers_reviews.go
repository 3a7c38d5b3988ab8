package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azaliaz/bookverse/internal/domain/access"
	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/domain/rating"
	"github.com/azaliaz/bookverse/internal/logger"
	storerrros "github.com/azaliaz/bookverse/internal/storage/errors"
)

type createReviewRequest struct {
	BookID  string `json:"bookId" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Content string `json:"content" validate:"required"`
}

func (s *Server) AllReviews(ctx *gin.Context) {
	reviews, err := s.Storage.GetReviews(requestContext(ctx), ctx.Query("bookId"))
	if err != nil {
		respondError(ctx, err, "Failed to fetch reviews")
		return
	}
	ctx.JSON(http.StatusOK, reviews)
}

func (s *Server) AddReview(ctx *gin.Context) {
	log := logger.Get()

	who, ok := identity(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User ID not found"})
		return
	}

	var req createReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		badRequest(ctx, validationMessage(err))
		return
	}

	rctx := requestContext(ctx)
	if _, err := s.Storage.GetBook(rctx, req.BookID); err != nil {
		respondError(ctx, err, "Failed to add review")
		return
	}

	review, err := s.Storage.SaveReview(rctx, models.Review{
		BookID:    req.BookID,
		Rating:    req.Rating,
		Content:   req.Content,
		AuthorUID: who.UserID,
		Username:  who.Username,
		CreatedAt: s.now(),
	})
	if err != nil {
		respondError(ctx, err, "Failed to add review")
		return
	}
	if err = s.recalculateRating(rctx, review.BookID, "create"); err != nil {
		respondError(ctx, err, "Failed to update book rating")
		return
	}
	log.Info().Str("rid", review.RID).Str("bid", review.BookID).Msg("review added")
	ctx.JSON(http.StatusCreated, review)
}

func (s *Server) UpdateReview(ctx *gin.Context) {
	who, ok := identity(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User ID not found"})
		return
	}

	var patch models.ReviewPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		badRequest(ctx, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(patch); err != nil {
		badRequest(ctx, validationMessage(err))
		return
	}

	rctx := requestContext(ctx)
	review, err := s.Storage.GetReview(rctx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to update review")
		return
	}
	if err = access.Can(who, access.ActionUpdate, review); err != nil {
		respondError(ctx, err, "Failed to update review")
		return
	}

	review.Apply(patch)
	review, err = s.Storage.UpdateReview(rctx, review)
	if err != nil {
		respondError(ctx, err, "Failed to update review")
		return
	}
	if err = s.recalculateRating(rctx, review.BookID, "update"); err != nil {
		respondError(ctx, err, "Failed to update book rating")
		return
	}
	ctx.JSON(http.StatusOK, review)
}

func (s *Server) RemoveReview(ctx *gin.Context) {
	who, ok := identity(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User ID not found"})
		return
	}
	rctx := requestContext(ctx)

	review, err := s.Storage.GetReview(rctx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to delete review")
		return
	}
	if err = access.Can(who, access.ActionDelete, review); err != nil {
		respondError(ctx, err, "Failed to delete review")
		return
	}
	if err = s.Storage.DeleteReview(rctx, review.RID); err != nil {
		respondError(ctx, err, "Failed to delete review")
		return
	}
	if err = s.recalculateRating(rctx, review.BookID, "delete"); err != nil {
		respondError(ctx, err, "Failed to update book rating")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

// recalculateRating writes the mean of the book's review ratings onto the
// book. A book deleted in the meantime is not an error.
func (s *Server) recalculateRating(ctx context.Context, bookID, trigger string) error {
	log := logger.Get()

	reviews, err := s.Storage.GetReviews(ctx, bookID)
	if err != nil {
		return err
	}
	avg := rating.Average(reviews)
	err = s.Storage.SetBookRating(ctx, bookID, avg)
	if errors.Is(err, storerrros.ErrBookNoExist) {
		log.Warn().Str("bid", bookID).Str("trigger", trigger).Msg("book vanished, rating rollup skipped")
		return nil
	}
	if err != nil {
		return err
	}
	ratingRecomputes.WithLabelValues(trigger).Inc()
	log.Debug().Str("bid", bookID).Float64("rating", avg).Int("reviews", len(reviews)).Msg("book rating recomputed")
	return nil
}
