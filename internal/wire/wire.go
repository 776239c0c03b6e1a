package wire

import (
	"net/http"

	"tourism-booking/internal/adaptor"
	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/sideeffect"
	"tourism-booking/internal/usecase"
	"tourism-booking/pkg/middleware"
	"tourism-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services and routes. dispatcher decides where side effects
// run: the in-process pool or the broker.
func Wiring(repo *repository.Repository, gw usecase.PaymentGateway, dispatcher sideeffect.Dispatcher, config *utils.Config, logger *zap.Logger) *App {
	effects := sideeffect.NewOrchestrator(dispatcher, logger)
	service := usecase.NewService(repo, gw, effects, config, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router:  setupRouter(handler, config, logger),
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wirePayment(r, handler.Payment, config, logger)
	wireWebhook(r, handler.Webhook)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
