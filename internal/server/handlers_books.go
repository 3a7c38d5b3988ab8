package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/azaliaz/bookverse/internal/domain/access"
	"github.com/azaliaz/bookverse/internal/domain/consts"
	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
)

type createBookRequest struct {
	Title         string                `json:"title" validate:"required"`
	Author        string                `json:"author" validate:"required"`
	Genre         string                `json:"genre"`
	Description   string                `json:"description"`
	CoverImage    string                `json:"coverImage"`
	ReadingStatus *models.ReadingStatus `json:"readingStatus"`
	Progress      *models.Progress      `json:"progress"`
}

// AllBooks lists the catalogue. Query: search, genre (repeatable),
// sort_by=latest|rating|title, limit, offset.
func (s *Server) AllBooks(ctx *gin.Context) {
	filter, msg := parseBookFilter(ctx)
	if msg != "" {
		badRequest(ctx, msg)
		return
	}
	books, err := s.Storage.GetBooks(requestContext(ctx), filter)
	if err != nil {
		respondError(ctx, err, "Failed to fetch books")
		return
	}
	ctx.JSON(http.StatusOK, books)
}

func parseBookFilter(ctx *gin.Context) (models.BookFilter, string) {
	filter := models.BookFilter{
		Search: ctx.Query("search"),
		SortBy: models.BookSort(ctx.DefaultQuery("sort_by", string(models.SortLatest))),
	}
	for _, g := range ctx.QueryArray("genre") {
		// the SPA sends genre=All for "no filter"
		if g != "" && g != "All" {
			filter.Genres = append(filter.Genres, g)
		}
	}
	switch filter.SortBy {
	case models.SortLatest, models.SortRating, models.SortTitle:
	default:
		return filter, "sort_by must be one of latest, rating, title"
	}

	var err error
	if v := ctx.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			return filter, "limit must be a non-negative integer"
		}
		filter.Limit = min(filter.Limit, consts.MaxPageLimit)
	}
	if v := ctx.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			return filter, "offset must be a non-negative integer"
		}
	}
	return filter, ""
}

func (s *Server) BookInfo(ctx *gin.Context) {
	book, err := s.Storage.GetBook(requestContext(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to fetch book")
		return
	}
	ctx.JSON(http.StatusOK, book)
}

func (s *Server) AddBook(ctx *gin.Context) {
	log := logger.Get()

	who, ok := identity(ctx)
	if !ok {
		log.Error().Msg("user ID not found")
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User ID not found"})
		return
	}

	var req createBookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		badRequest(ctx, validationMessage(err))
		return
	}
	if msg := checkProgressFields(req.ReadingStatus, req.Progress); msg != "" {
		badRequest(ctx, msg)
		return
	}

	now := s.now()
	book := models.Book{
		Title:         req.Title,
		Author:        req.Author,
		Genre:         req.Genre,
		Description:   req.Description,
		CoverImage:    req.CoverImage,
		OwnerUID:      who.UserID,
		ReadingStatus: models.StatusWantToRead,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.ReadingStatus != nil {
		book.SetStatus(*req.ReadingStatus, now)
	}
	if req.Progress != nil {
		book.Progress = *req.Progress
	}

	book, err := s.Storage.SaveBook(requestContext(ctx), book)
	if err != nil {
		respondError(ctx, err, "Failed to add book")
		return
	}
	log.Info().Str("bid", book.BID).Str("uid", who.UserID).Msg("book added")
	ctx.JSON(http.StatusCreated, book)
}

func (s *Server) UpdateBook(ctx *gin.Context) {
	var patch models.BookPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		badRequest(ctx, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(patch); err != nil {
		badRequest(ctx, validationMessage(err))
		return
	}
	if msg := checkProgressFields(patch.ReadingStatus, patch.Progress); msg != "" {
		badRequest(ctx, msg)
		return
	}
	s.patchBook(ctx, access.ActionUpdate, patch)
}

func (s *Server) UpdateProgress(ctx *gin.Context) {
	var req models.ProgressPatch
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "incorrectly entered data")
		return
	}
	if req.ReadingStatus == nil && req.Progress == nil {
		badRequest(ctx, "readingStatus or progress is required")
		return
	}
	if msg := checkProgressFields(req.ReadingStatus, req.Progress); msg != "" {
		badRequest(ctx, msg)
		return
	}
	s.patchBook(ctx, access.ActionTrackProgress, req.BookPatch())
}

// patchBook loads the book named in the path, checks the caller may perform
// action on it, merges patch and stores the result.
func (s *Server) patchBook(ctx *gin.Context, action access.Action, patch models.BookPatch) {
	who, ok := identity(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User ID not found"})
		return
	}
	rctx := requestContext(ctx)

	book, err := s.Storage.GetBook(rctx, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to update book")
		return
	}
	if err = access.Can(who, action, book); err != nil {
		respondError(ctx, err, "Failed to update book")
		return
	}

	book.Apply(patch, s.now())
	updated, err := s.Storage.UpdateBook(rctx, book)
	if err != nil {
		respondError(ctx, err, "Failed to update book")
		return
	}
	ctx.JSON(http.StatusOK, updated)
}

func checkProgressFields(status *models.ReadingStatus, progress *models.Progress) string {
	if status != nil && !status.Valid() {
		return "readingStatus must be one of want-to-read, reading, completed"
	}
	if progress != nil && !progress.Valid() {
		return "Current page cannot exceed total pages"
	}
	return ""
}

func (s *Server) RemoveBook(ctx *gin.Context) {
	log := logger.Get()

	who, ok := identity(ctx)
	if !ok {
		log.Error().Msg("user ID not found")
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "User ID not found"})
		return
	}
	rctx := requestContext(ctx)
	id := ctx.Param("id")

	book, err := s.Storage.GetBook(rctx, id)
	if err != nil {
		respondError(ctx, err, "Failed to delete book")
		return
	}
	if err = access.Can(who, access.ActionDelete, book); err != nil {
		respondError(ctx, err, "Failed to delete book")
		return
	}

	// reviews first: a crash in between leaves a book without reviews
	// rather than reviews without a book
	n, err := s.Storage.DeleteReviewsByBook(rctx, id)
	if err != nil {
		respondError(ctx, err, "Failed to delete book")
		return
	}
	if err = s.Storage.DeleteBook(rctx, id); err != nil {
		respondError(ctx, err, "Failed to delete book")
		return
	}
	log.Info().Str("bid", id).Int64("reviews", n).Msg("book and reviews deleted")
	ctx.JSON(http.StatusOK, gin.H{"message": "Book and its reviews deleted successfully"})
}
