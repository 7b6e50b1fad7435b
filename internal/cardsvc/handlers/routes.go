package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes
		r.Get("/health", h.HealthHandler)
		r.Get("/ws", h.HandleWebSocket)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/cards", h.RegisterCard)
			r.Get("/cards", h.ListCards)
			r.Get("/cards/active", h.ActiveCard)
			r.Get("/cards/state", h.CardState)
			r.Put("/cards/{serial}/select", h.SelectCard)
			r.Delete("/cards/{serial}", h.DeleteCard)
			r.Get("/cards/{serial}/balance", h.CardBalance)
			r.Get("/cards/{serial}/valid", h.CardValidity)

			r.Get("/plan", h.PlanTrip)
			r.Get("/trips", h.TripHistory)

			r.Get("/stops/nearby", h.NearbyStops)
			r.Post("/location", h.ReportLocation)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 4102007,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}

// AuthForTesting installs a token auth with the given key and returns a
// signed token, used by handler tests.
func (h *Handler) AuthForTesting(key string) string {
	h.tokenAuth = jwtauth.New("HS256", []byte(key), nil)
	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 4102007,
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	return tokenString
}
