package handlers

import (
	"github.com/gin-gonic/gin"

	"authservice/internal/models"
	"authservice/internal/services"
)

type AdminHandler struct {
	users services.UserService
}

func NewAdminHandler(users services.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

type listUsersQuery struct {
	Name          string `form:"name"`
	Email         string `form:"email"`
	Phone         string `form:"phone"`
	Role          string `form:"role" binding:"omitempty,oneof=user admin"`
	EmailVerified *bool  `form:"email_verified"`
	PhoneVerified *bool  `form:"phone_verified"`
	Active        *bool  `form:"active"`
	Deleted       *bool  `form:"deleted"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// @Summary      Список аккаунтов
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Param        name            query     string  false  "Имя (подстрока)"
// @Param        email           query     string  false  "Email (подстрока)"
// @Param        phone           query     string  false  "Телефон (подстрока)"
// @Param        role            query     string  false  "user | admin"
// @Param        email_verified  query     bool    false  "Email подтверждён"
// @Param        phone_verified  query     bool    false  "Телефон подтверждён"
// @Param        active          query     bool    false  "Активен"
// @Param        deleted         query     bool    false  "Удалён"
// @Param        page            query     int     false  "Страница"
// @Param        page_size       query     int     false  "Размер страницы"
// @Success      200  {object}  models.Payload{data=[]models.Account,metadata=models.PageMeta}
// @Failure      403  {object}  models.Payload
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.users.ListAccounts(c.Request.Context(), models.AccountFilter{
		Name:          q.Name,
		Email:         q.Email,
		Phone:         q.Phone,
		Role:          q.Role,
		EmailVerified: q.EmailVerified,
		PhoneVerified: q.PhoneVerified,
		Active:        q.Active,
		Deleted:       q.Deleted,
		Page:          q.Page,
		PageSize:      q.PageSize,
	}))
}
