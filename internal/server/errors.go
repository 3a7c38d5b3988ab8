package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/azaliaz/bookverse/internal/domain/access"
	"github.com/azaliaz/bookverse/internal/logger"
	storerrros "github.com/azaliaz/bookverse/internal/storage/errors"
)

// respondError turns a storage or policy error into the API status code.
// Unclassified errors are logged and reported with the fallback message.
func respondError(ctx *gin.Context, err error, fallback string) {
	log := logger.Get()
	switch {
	case errors.Is(err, storerrros.ErrBookNoExist),
		errors.Is(err, storerrros.ErrReviewNoExist),
		errors.Is(err, storerrros.ErrUserNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"message": notFoundMessage(err)})
	case errors.Is(err, access.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{"message": "You can only modify your own records"})
	case errors.Is(err, storerrros.ErrEmailTaken):
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Email already registered"})
	case errors.Is(err, storerrros.ErrUsernameTaken):
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Username already taken"})
	case errors.Is(err, storerrros.ErrUserNoExist),
		errors.Is(err, storerrros.ErrInvalidPassword):
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
	case errors.Is(err, ErrInvalidToken):
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token."})
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg(fallback)
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, storerrros.ErrBookNoExist):
		return "Book not found"
	case errors.Is(err, storerrros.ErrReviewNoExist):
		return "Review not found"
	default:
		return "User not found"
	}
}

func badRequest(ctx *gin.Context, msg string) {
	ctx.JSON(http.StatusBadRequest, gin.H{"message": msg})
}

// validationMessage renders the first validator failure in plain words.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "incorrectly entered data"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email address"
	case "min", "max":
		if fe.Field() == "Password" {
			return "Password must be at least 6 characters"
		}
		if fe.Field() == "Rating" {
			return "Rating must be between 1 and 5"
		}
		return fe.Field() + " is out of range"
	default:
		return fe.Field() + " is invalid"
	}
}

func requestContext(ctx *gin.Context) context.Context {
	if ctx.Request != nil {
		return ctx.Request.Context()
	}
	return context.Background()
}
