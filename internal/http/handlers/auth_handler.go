// README: Sign-in and menu handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiloadmin/internal/http/middleware"
	"kiloadmin/internal/modules/auth"
)

type SignInService interface {
	SignIn(ctx context.Context, phone, password string) (*auth.Session, error)
}

type AuthHandler struct {
	auth SignInService
}

func NewAuthHandler(svc SignInService) *AuthHandler {
	return &AuthHandler{auth: svc}
}

type signInReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	session, err := h.auth.SignIn(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, session)
}

func (h *AuthHandler) Menus(c *gin.Context) {
	role := middleware.CallerRole(c)
	writeJSON(c, http.StatusOK, gin.H{"admin_role": role, "menus": auth.Menus(role)})
}
