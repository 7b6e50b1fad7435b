package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/vblancom/tullave-services/internal/cardsvc/service"
	"github.com/vblancom/tullave-services/internal/cardsvc/store"
	"github.com/vblancom/tullave-services/internal/cardsvc/ws"
	"github.com/vblancom/tullave-services/internal/comm"
	"github.com/vblancom/tullave-services/internal/location"
	"github.com/vblancom/tullave-services/internal/remote"
)

type Handler struct {
	cards     *service.CardService
	plans     *service.PlanService
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	tokenAuth *jwtauth.JWTAuth
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func NewHandler(cards *service.CardService, plans *service.PlanService, hub *ws.Hub) *Handler {
	return &Handler{
		cards: cards,
		plans: plans,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.CreateResponse(w, Response{Code: statusFor(err), Error: err.Error()})
}

// statusFor maps the service and remote error taxonomy onto HTTP statuses.
// Upstream failures surface as 502 so clients can tell them from their own
// bad input.
func statusFor(err error) int {
	var invalidInput *remote.InvalidInputError
	var apiErr *remote.APIError
	var transportErr *remote.TransportError
	var decodeErr *remote.DecodeError

	switch {
	case errors.Is(err, service.ErrEmptySerial), errors.As(err, &invalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRegistrationInFlight), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrNoLocation):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrAuthenticationFailed),
		errors.As(err, &apiErr),
		errors.As(err, &decodeErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "card service is running",
		Code:    http.StatusOK,
	})
}

// RegisterCard runs a registration attempt for the submitted serial and
// returns the resulting state snapshot.
func (h *Handler) RegisterCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Serial string `json:"serial"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	state, err := h.cards.Register(r.Context(), req.Serial)
	if err != nil {
		h.CreateResponse(w, Response{Code: statusFor(err), Error: err.Error(), Data: state})
		return
	}

	h.CreateResponse(w, Response{Message: state.Message, Code: http.StatusCreated, Data: state})
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: cards})
}

func (h *Handler) ActiveCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.ActiveCard(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: card})
}

func (h *Handler) SelectCard(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if err := h.cards.Select(r.Context(), serial); err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "card selected", Code: http.StatusOK, Data: h.cards.State()})
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if err := h.cards.Delete(r.Context(), serial); err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "card deleted", Code: http.StatusOK, Data: h.cards.State()})
}

func (h *Handler) CardBalance(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	card, err := h.cards.RefreshBalance(r.Context(), serial)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: card})
}

func (h *Handler) CardValidity(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	status, err := h.cards.Validity(r.Context(), serial)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: status})
}

func (h *Handler) CardState(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: h.cards.State()})
}

// PlanTrip proxies the OpenTripPlanner /plan query. Departure defaults to
// now; a "when" query in RFC 3339 overrides it.
func (h *Handler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	when := time.Now()
	if v := r.URL.Query().Get("when"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "when must be RFC 3339"})
			return
		}
		when = parsed
	}

	plan, err := h.plans.Plan(r.Context(), from, to, when)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: plan})
}

func (h *Handler) TripHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	records, err := h.plans.History(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: records})
}

// NearbyStops searches stops around "at=lat,lon", or around the latest
// device fix when "at" is missing.
func (h *Handler) NearbyStops(w http.ResponseWriter, r *http.Request) {
	radius, _ := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)

	var (
		stops []location.StopWithDistance
		err   error
	)
	if at := r.URL.Query().Get("at"); at != "" {
		stops, err = h.plans.NearbyStops(at, radius)
	} else {
		stops, err = h.plans.NearbyStopsAtDevice(radius)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: stops})
}

func (h *Handler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	var report comm.LocationReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	accepted, err := h.plans.ReportLocation(report.Lat, report.Lon)
	if err != nil {
		h.fail(w, err)
		return
	}

	msg := "location accepted"
	if !accepted {
		msg = "location unchanged"
	}
	h.CreateResponse(w, Response{Message: msg, Code: http.StatusOK})
}

// HandleWebSocket upgrades the connection and registers it with the hub.
// Pushed messages carry card state snapshots and location fixes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.hub.StoreConnection(socketId, conn)
	log.Infof("new WebSocket connection: %s", socketId)

	go h.drainConnection(conn, socketId)
}

// drainConnection reads until the peer goes away; clients only listen, any
// inbound payload is discarded.
func (h *Handler) drainConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		conn.Close()
		h.hub.HandleDisconnect(socketId)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket closed for socket: %s", socketId)
			}
			return
		}
	}
}
