package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/digitaldrywood/acreditacion/internal/app"
	"github.com/digitaldrywood/acreditacion/internal/config"
	"github.com/digitaldrywood/acreditacion/internal/editor"
	"github.com/digitaldrywood/acreditacion/internal/hosting"
	"github.com/digitaldrywood/acreditacion/internal/notice"
	"github.com/digitaldrywood/acreditacion/internal/report"
	"github.com/digitaldrywood/acreditacion/internal/roster"
	"github.com/digitaldrywood/acreditacion/internal/server"
)

func main() {
	var (
		serve   = flag.Bool("serve", false, "Serve the accreditation API (default)")
		summary = flag.Bool("summary", false, "Show accreditation progress")
		hosts   = flag.Bool("hosting", false, "List hosts and their assigned visits")
		venue   = flag.String("local", "", "Only list hosts at this venue (with -hosting)")
		name    = flag.String("nombre", "", "Only list hosts whose name contains this text (with -hosting)")
		whoami  = flag.Bool("whoami", false, "Show the signed-in Google account")
		logout  = flag.Bool("logout", false, "Sign out and revoke the stored token")
	)
	flag.Parse()

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

	switch {
	case *summary:
		showSummary(ctx, a)
	case *hosts:
		showHosts(ctx, a, *name, *venue)
	case *whoami:
		showSession(ctx, a)
	case *logout:
		signOut(ctx, a)
	case *serve:
		runServer(ctx, a)
	default:
		runServer(ctx, a)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func runServer(ctx context.Context, a *app.App) {
	cfg := a.Config

	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
	gin.SetMode(cfg.GinMode)
	displayAppname("Acreditacion")

	notices := notice.NewBoard(cfg.NoticeDelay)
	defer notices.Close()

	table := roster.New(a.Store, notices,
		roster.WithLocation(a.Location),
		roster.WithQuietPeriod(cfg.NotesQuietPeriod),
		roster.WithPageSize(cfg.RosterPageSize),
	)
	defer table.Close()

	srv := server.New(ctx, server.Deps{
		Sessions: a.Sessions,
		Editor:   editor.New(a.Store, a.Sessions, notices, editor.WithLocation(a.Location)),
		Hosting:  hosting.NewViewer(a.Store, notices),
		Roster:   table,
		Notices:  notices,
	}, server.Limits{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst})

	// Views are subscribed now, so a restored session loads them.
	if restored, err := a.Sessions.Restore(ctx); err != nil {
		log.WithError(err).Warn("failed to restore session")
	} else if restored {
		log.Info("previous session restored")
	}

	if err := srv.Run(ctx, cfg.Addr); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func showSummary(ctx context.Context, a *app.App) {
	sess, err := a.RequireSession(ctx)
	if err != nil {
		log.WithError(err).Fatal("sign in first with the auth command")
	}

	visits, err := a.Store.Accreditations(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load accreditations")
	}
	staff, err := a.Store.Roster(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load roster")
	}

	title, _, err := a.Sheets.Describe(ctx, sess.AccessToken)
	if err != nil {
		log.WithError(err).Warn("failed to read spreadsheet title")
		title = a.Config.SpreadsheetID
	}

	fmt.Println(report.Format(report.Build(title, visits, staff)))
}

func showHosts(ctx context.Context, a *app.App, name, venue string) {
	if _, err := a.RequireSession(ctx); err != nil {
		log.WithError(err).Fatal("sign in first with the auth command")
	}

	notices := notice.NewBoard(a.Config.NoticeDelay)
	defer notices.Close()

	viewer := hosting.NewViewer(a.Store, notices)
	if err := viewer.Load(ctx); err != nil {
		log.WithError(err).Fatal("failed to load hosts")
	}
	viewer.SetNameFilter(name)
	viewer.SetVenueFilter(venue)

	view := viewer.View()
	if view.Empty != "" {
		fmt.Println(view.Empty)
		return
	}

	fmt.Println("=== Hospedadores ===")
	for _, h := range view.Rows {
		fmt.Printf("\n%s (%s)\n", h.Name, h.Venue)
		fmt.Printf("  Dirección: %s\n", h.Address)
		fmt.Printf("  Contacto:  %s\n", h.Contact)
		if h.FormattedVisits != "" {
			fmt.Println("  Visitas:")
			for _, line := range strings.Split(h.FormattedVisits, "\n") {
				fmt.Printf("    %s\n", strings.TrimSpace(line))
			}
		}
	}
}

func showSession(ctx context.Context, a *app.App) {
	sess, err := a.RequireSession(ctx)
	if err != nil {
		fmt.Println("No hay sesión iniciada.")
		return
	}

	fmt.Println("Sesión iniciada como")
	if sess.UserName != "" {
		fmt.Printf("  %s\n", sess.UserName)
	}
	fmt.Printf("  %s\n", sess.UserEmail)
	fmt.Printf("  expira: %s\n", sess.ExpiresAt.In(a.Location).Format("02-01-2006, 15:04:05"))
}

func signOut(ctx context.Context, a *app.App) {
	if _, err := a.Sessions.Restore(ctx); err != nil {
		log.WithError(err).Warn("failed to read stored session")
	}
	if err := a.Sessions.Wait(ctx); err != nil {
		log.WithError(err).Warn("token will not be revoked remotely")
	}
	if err := a.Sessions.Logout(ctx); err != nil {
		log.WithError(err).Fatal("failed to sign out")
	}
	fmt.Println("Sesión cerrada.")
}
