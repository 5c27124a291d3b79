package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"authservice/internal/models"
	"authservice/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// @Summary      Профиль текущего пользователя
// @Tags         User
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Payload{data=models.Profile}
// @Failure      401  {object}  models.Payload
// @Failure      404  {object}  models.Payload
// @Router       /user [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	respond(c, h.service.GetProfile(c.Request.Context(), id))
}

// @Summary      Редактирование профиля
// @Tags         User
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ProfileUpdate  true  "Поля профиля"
// @Success      200   {object}  models.Payload{data=models.Profile}
// @Router       /user/edit-profile [put]
func (h *UserHandler) EditProfile(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.service.UpdateProfile(c.Request.Context(), id, req))
}

// @Summary      Смена пароля
// @Description  Новый токен возвращается только при logOtherDevicesOut
// @Tags         User
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ChangePasswordRequest  true  "Старый и новый пароль"
// @Success      200   {object}  models.Payload{data=models.SessionData}
// @Failure      400   {object}  models.Payload
// @Router       /user/change-password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.service.ChangePassword(c.Request.Context(), id, req))
}

// @Summary      Выход на всех устройствах
// @Tags         User
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Payload
// @Router       /user/sign-out [post]
func (h *UserHandler) SignOut(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	respond(c, h.service.SignOut(c.Request.Context(), id))
}

// @Summary      Выход на других устройствах
// @Description  Текущий клиент получает новый токен
// @Tags         User
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Payload{data=models.SessionData}
// @Router       /user/log-other-devices-out [post]
func (h *UserHandler) LogOtherDevicesOut(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	respond(c, h.service.LogOtherDevicesOut(c.Request.Context(), id))
}

// @Summary      Подтверждение телефона
// @Description  Без токена отправляет SMS с кодом, с токеном подтверждает номер
// @Tags         User
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      models.VerifyPhoneRequest  false  "Код из SMS"
// @Success      200   {object}  models.Payload
// @Success      202   {object}  models.Payload
// @Failure      498   {object}  models.Payload
// @Router       /user/verify-phone [post]
func (h *UserHandler) VerifyPhone(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	var req models.VerifyPhoneRequest
	// пустое тело = запрос кода
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindFailed(c, err)
		return
	}
	respond(c, h.service.VerifyPhone(c.Request.Context(), id, req.Token))
}

// @Summary      TOTP: ссылка и QR-код
// @Tags         User
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Payload{data=models.TOTPProvisioning}
// @Router       /user/totp [get]
func (h *UserHandler) TOTP(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	respond(c, h.service.TOTPProvisioning(c.Request.Context(), id))
}

// @Summary      TOTP: проверка кода
// @Tags         User
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      models.TOTPCodeRequest  true  "Код"
// @Success      200   {object}  models.Payload
// @Failure      401   {object}  models.Payload
// @Router       /user/totp/validate [post]
func (h *UserHandler) ValidateTOTP(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	var req models.TOTPCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.service.ValidateTOTP(c.Request.Context(), id, req.Code))
}

// @Summary      TOTP: новый секрет
// @Tags         User
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Payload{data=models.TOTPProvisioning}
// @Router       /user/totp/regenerate [post]
func (h *UserHandler) RegenerateTOTP(c *gin.Context) {
	id, ok := currentAccount(c)
	if !ok {
		return
	}
	respond(c, h.service.RegenerateTOTP(c.Request.Context(), id))
}
