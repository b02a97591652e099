package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"blinkpay/internal/events"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler, hub *events.Hub) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/requests", func(r chi.Router) {
		r.Post("/", handler.CreateRequest)
		r.Get("/{ref}", handler.GetRequest)
		r.Get("/{ref}/raw", handler.GetRequestRaw)
		r.Post("/{ref}/pay", handler.PayRequest)
	})

	r.Route("/charges", func(r chi.Router) {
		r.Post("/", handler.CreateCharge)
		r.Get("/{ref}", handler.GetCharge)
		r.Get("/{ref}/raw", handler.GetChargeRaw)
		r.Post("/{ref}/execute", handler.ExecuteCharge)
		r.Delete("/{ref}", handler.CancelCharge)
	})

	if hub != nil {
		r.Get("/ws", hub.Handle)
	}

	return &Server{Router: r}
}
