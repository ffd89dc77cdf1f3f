package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charleshuang3/kinderauth/internal/storage"
)

type meResponse struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func (p *Provider) handleMe(c *gin.Context) {
	user, err := storage.GetUserByID(p.db, accessClaims(c).UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: kindInvalidToken})
		return
	}

	c.JSON(http.StatusOK, &meResponse{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Roles:    user.RoleList(),
	})
}
