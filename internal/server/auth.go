package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/azaliaz/bookverse/internal/domain/consts"
	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) JWTAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		log := logger.Get()

		tokenHeader := ctx.GetHeader("Authorization")
		if tokenHeader == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
			return
		}

		// expected format "Bearer <token>"
		tokenParts := strings.Split(tokenHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format"})
			return
		}

		who, err := s.validToken(tokenParts[1])
		if err != nil {
			log.Debug().Err(err).Msg("validate jwt failed")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token."})
			return
		}

		setIdentity(ctx, who)
		ctx.Next()
	}
}

func setIdentity(ctx *gin.Context, who models.Identity) {
	ctx.Set("uid", who.UserID)
	ctx.Set("username", who.Username)
	ctx.Set("email", who.Email)
}

// identity reads the caller put on the context by JWTAuthMiddleware.
func identity(ctx *gin.Context) (models.Identity, bool) {
	uid := ctx.GetString("uid")
	if uid == "" {
		return models.Identity{}, false
	}
	return models.Identity{
		UserID:   uid,
		Username: ctx.GetString("username"),
		Email:    ctx.GetString("email"),
	}, true
}

func (s *Server) validToken(tokenStr string) (models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{UserID: claims.UserID, Username: claims.Username, Email: claims.Email}, nil
}

func (s *Server) createJWTToken(user models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(consts.TokenTTL)),
		},
		UserID:   user.UID,
		Username: user.Username,
		Email:    user.Email,
	})
	return token.SignedString(s.secret)
}
