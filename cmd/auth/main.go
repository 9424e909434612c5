package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/digitaldrywood/acreditacion/internal/app"
	"github.com/digitaldrywood/acreditacion/internal/config"
)

func main() {
	fmt.Println("=== Acreditación: inicio de sesión ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}
	defer a.Close()

	if err := a.Sessions.Wait(ctx); err != nil {
		log.WithError(err).Fatal("Google sign-in is not available")
	}

	// Opens the consent page and waits for the loopback callback.
	sess, err := a.Sessions.Login(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to authenticate")
	}

	// Test the connection by reading spreadsheet metadata.
	title, tabs, err := a.Sheets.Describe(ctx, sess.AccessToken)
	if err != nil {
		log.WithError(err).Fatal("failed to access spreadsheet")
	}

	fmt.Println("✅ Sesión iniciada correctamente!")
	fmt.Printf("👤 %s\n", sess.UserEmail)
	fmt.Printf("📊 Planilla: %s\n", title)
	for _, tab := range tabs {
		fmt.Printf("   - %s\n", tab)
	}
	fmt.Println()
	fmt.Println("Comandos disponibles:")
	fmt.Println("  acreditacion            - Servir la API de acreditación")
	fmt.Println("  acreditacion -summary   - Resumen de avance")
	fmt.Println("  acreditacion -hosting   - Listado de hospedadores")
	fmt.Println("  acreditacion -logout    - Cerrar sesión")
}
