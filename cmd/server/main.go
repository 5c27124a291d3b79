package main

import (
	"log"

	"authservice/internal/app"
)

// @title                       Auth Service API
// @version                     1.0
// @description                 Sign-up, sign-in, verification, password reset and profile management.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
