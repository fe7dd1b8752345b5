package handlers

import (
	"net/http"
	"time"

	"github.com/game-store-project/game-store/accounts"
	"github.com/game-store-project/game-store/concurrent"
	"github.com/game-store-project/game-store/middleware"
	"github.com/game-store-project/game-store/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	accounts *accounts.Service
	library  concurrent.LibraryLister
	timeout  time.Duration
}

func NewUserHandler(svc *accounts.Service, library concurrent.LibraryLister, timeout time.Duration) *UserHandler {
	return &UserHandler{accounts: svc, library: library, timeout: timeout}
}

type accountView struct {
	models.User
	Games []models.Game `json:"games"`
}

type userSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// SignUp - POST /users/signup
func (h *UserHandler) SignUp(c *gin.Context) {
	var input models.SignUpInput
	if !bindJSON(c, &input) {
		return
	}
	if _, err := h.accounts.SignUp(c.Request.Context(), input); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"info": "Account created"})
}

// SignIn - POST /users/signin
func (h *UserHandler) SignIn(c *gin.Context) {
	var input models.SignInInput
	if !bindJSON(c, &input) {
		return
	}
	token, user, err := h.accounts.SignIn(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Account - GET /users/account
func (h *UserHandler) Account(c *gin.Context) {
	account, err := concurrent.FetchAccount(c.Request.Context(), h.accounts, h.library, middleware.CurrentUserID(c), h.timeout)
	if err != nil {
		writeError(c, err)
		return
	}
	games := account.Games
	if games == nil {
		games = []models.Game{}
	}
	c.JSON(http.StatusOK, gin.H{"user": accountView{User: account.User, Games: games}})
}

// UpdateAccount - PATCH /users/account
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	var input models.UpdateAccountInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := h.accounts.UpdateAccount(c.Request.Context(), middleware.CurrentUserID(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteAccount - DELETE /users/account
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	var input models.DeleteAccountInput
	if !bindJSON(c, &input) {
		return
	}
	if err := h.accounts.DeleteAccount(c.Request.Context(), middleware.CurrentUserID(c), input.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"info": "Account deleted"})
}

// List - GET /users (admin)
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.accounts.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// SetAdmin - PATCH /users/:id (admin)
func (h *UserHandler) SetAdmin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input models.AlterUserInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := h.accounts.SetAdmin(c.Request.Context(), middleware.CurrentUserID(c), id, *input.IsAdmin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": gin.H{"username": user.Username, "isAdmin": user.IsAdmin}})
}
