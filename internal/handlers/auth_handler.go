package handlers

import (
	"github.com/gin-gonic/gin"

	"authservice/internal/models"
	"authservice/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// @Summary      Регистрация
// @Description  Создаёт аккаунт и отправляет письмо для подтверждения email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.SignUpRequest  true  "Данные аккаунта"
// @Success      201   {object}  models.Payload
// @Failure      409   {object}  models.Payload
// @Failure      422   {object}  models.Payload
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.authService.SignUp(c.Request.Context(), req))
}

// @Summary      Вход в систему
// @Description  Вход по email, телефону или username. 499 если email не подтверждён
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Данные для входа"
// @Success      200    {object}  models.Payload{data=models.SignInData}
// @Failure      401    {object}  models.Payload
// @Failure      403    {object}  models.Payload
// @Failure      499    {object}  models.Payload
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.authService.SignIn(c.Request.Context(), req))
}

// @Summary      Подтверждение email
// @Tags         Auth
// @Produce      json
// @Param        token   query     string  false  "Токен из письма"
// @Param        email   query     string  true   "Email"
// @Param        resend  query     bool    false  "Отправить письмо заново"
// @Success      202     {object}  models.Payload
// @Failure      404     {object}  models.Payload
// @Failure      410     {object}  models.Payload
// @Failure      498     {object}  models.Payload
// @Router       /auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req models.VerifyAccountRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.authService.VerifyAccount(c.Request.Context(), req))
}

// @Summary      Повторная отправка письма подтверждения
// @Tags         Auth
// @Produce      json
// @Param        email  query     string  true  "Email"
// @Success      200    {object}  models.Payload
// @Failure      404    {object}  models.Payload
// @Router       /auth/resend-verification [get]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.VerifyAccountRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	req.Resend = true
	respond(c, h.authService.VerifyAccount(c.Request.Context(), req))
}

// @Summary      Запрос сброса пароля
// @Description  Ответ одинаковый для известных и неизвестных email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.InitiateResetRequest  true  "Email"
// @Success      200   {object}  models.Payload
// @Router       /auth/initiate-reset [post]
func (h *AuthHandler) InitiateReset(c *gin.Context) {
	var req models.InitiateResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.authService.InitiateReset(c.Request.Context(), req.Email))
}

// @Summary      Проверка токена сброса
// @Description  Возвращает update-токен для установки нового пароля
// @Tags         Auth
// @Produce      json
// @Param        token  query     string  true  "Токен из письма"
// @Success      202    {object}  models.Payload{data=string}
// @Failure      410    {object}  models.Payload
// @Failure      498    {object}  models.Payload
// @Router       /auth/verify-reset [get]
func (h *AuthHandler) VerifyReset(c *gin.Context) {
	var q struct {
		Token string `form:"token" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.authService.VerifyReset(c.Request.Context(), q.Token))
}

// @Summary      Установка нового пароля
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetPasswordRequest  true  "Update-токен и пароль"
// @Success      202   {object}  models.Payload
// @Failure      410   {object}  models.Payload
// @Failure      498   {object}  models.Payload
// @Router       /auth/reset-password [put]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	respond(c, h.authService.ResetPassword(c.Request.Context(), req))
}
