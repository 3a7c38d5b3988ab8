package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
)

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    userView `json:"user"`
}

func (s *Server) Register(ctx *gin.Context) {
	log := logger.Get()
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		badRequest(ctx, validationMessage(err))
		return
	}

	user, err := s.Storage.SaveUser(requestContext(ctx), models.User{
		Username:  req.Username,
		Email:     req.Email,
		Pass:      req.Password,
		CreatedAt: s.now(),
	})
	if err != nil {
		respondError(ctx, err, "Server error during registration")
		return
	}

	token, err := s.createJWTToken(user)
	if err != nil {
		log.Error().Err(err).Msg("create jwt failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Server error during registration"})
		return
	}
	log.Info().Str("uid", user.UID).Msg("user registered")
	ctx.JSON(http.StatusCreated, authResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    userView{ID: user.UID, Username: user.Username, Email: user.Email},
	})
}

func (s *Server) Login(ctx *gin.Context) {
	log := logger.Get()
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("unmarshal body failed")
		badRequest(ctx, "incorrectly entered data")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		badRequest(ctx, "Email and password are required")
		return
	}

	user, err := s.Storage.ValidUser(requestContext(ctx), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err, "Server error during login")
		return
	}

	token, err := s.createJWTToken(user)
	if err != nil {
		log.Error().Err(err).Msg("create jwt failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Server error during login"})
		return
	}
	ctx.JSON(http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   token,
		User:    userView{ID: user.UID, Username: user.Username, Email: user.Email},
	})
}

func (s *Server) UserInfo(ctx *gin.Context) {
	who, ok := identity(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
		return
	}
	user, err := s.Storage.GetUser(requestContext(ctx), who.UserID)
	if err != nil {
		respondError(ctx, err, "Server error")
		return
	}
	ctx.JSON(http.StatusOK, user)
}
