package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/SkySouL159/RMS/internal/config"
	"github.com/SkySouL159/RMS/internal/grid"
	"github.com/SkySouL159/RMS/internal/handler"
	"github.com/SkySouL159/RMS/internal/queue"
	"github.com/SkySouL159/RMS/internal/realtime"
	"github.com/SkySouL159/RMS/internal/router"
	queue_publisher "github.com/SkySouL159/RMS/internal/service"
	"github.com/SkySouL159/RMS/internal/store"
	"github.com/SkySouL159/RMS/internal/view"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.HTTPTimeout)
	controllers := []*grid.Controller{
		grid.NewController(grid.LightBill(), st),
		grid.NewController(grid.Payment(), st),
	}

	broker := handler.NewSSEBroker()
	for _, ctrl := range controllers {
		ctrl := ctrl
		ctrl.OnChange(func(ch grid.Change) {
			broker.Notify(ch)
			if cfg.AuditEnabled {
				ev := queue.RowChangedEvent{
					Grid:      ch.Grid,
					Table:     ctrl.Schema().Table,
					EventType: string(ch.Type),
					RowID:     ch.ID,
					Row:       ch.Row,
					ChangedAt: time.Now().UTC().Format(time.RFC3339),
				}
				// Off the reconciliation path; errors are logged inside.
				go func() { _ = queue_publisher.PublishRowChanged(ctx, ev) }()
			}
		})
	}

	// Initial load. A failure is not fatal: the pages render it as a
	// terminal error and a later fresh visit retries.
	for _, ctrl := range controllers {
		if err := ctrl.Load(ctx); err != nil {
			log.Printf("initial load %s failed: %v", ctrl.Schema().Name, err)
		}
	}

	// Realtime subscriptions keep the in-memory sets convergent with
	// mutations made by any client. Cancelling ctx tears them down.
	if cfg.RealtimeEnabled {
		for _, ctrl := range controllers {
			ctrl := ctrl
			sub := realtime.NewSubscriber(cfg.SupabaseURL, cfg.SupabaseAnonKey, ctrl.Schema().Table,
				func(ev realtime.Event) {
					ctrl.ApplyEvent(ev.Type, ev.New, ev.Old)
				})
			go sub.Run(ctx)
		}
	}

	if cfg.AuditEnabled {
		go func() {
			if err := queue.StartChangeLogConsumer(); err != nil {
				log.Printf("change-consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = view.New()
	rdb := config.NewRedisClient()
	router.RegisterRoutes(e,
		handler.NewPageHandler(controllers...),
		handler.NewGridHandler(st, controllers...),
		handler.NewStreamHandler(broker, "lightbill", "payment"),
		rdb,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Println(err)
	}
}
