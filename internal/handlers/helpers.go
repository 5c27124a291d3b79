package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"authservice/internal/middleware"
	"authservice/internal/models"
)

func respond(c *gin.Context, res models.Result) {
	c.JSON(res.HTTPStatus(), res.Payload)
}

// bindFailed answers 422 with the failed fields, without echoing values.
func bindFailed(c *gin.Context, err error) {
	msg := "Invalid request body"
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		msg = strings.Join(parts, "; ")
	}
	c.JSON(http.StatusUnprocessableEntity, models.Payload{Status: false, Message: msg})
}

// currentAccount reads the id AuthMiddleware put into the context.
func currentAccount(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Payload{Status: false, Message: "Unauthorized"})
		return uuid.Nil, false
	}
	return id, true
}
