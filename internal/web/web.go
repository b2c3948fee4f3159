package web

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// flipHistoryCap bounds the in-memory switch history.
const flipHistoryCap = 20

// Flip records one switch transition: the instant it happened, the new
// state, and the summary of the instance that caused it.
type Flip struct {
	At      time.Time `json:"at"`
	Active  bool      `json:"active"`
	Summary string    `json:"summary,omitempty"`
}

// State is the shared snapshot store between the evaluation loop and the
// HTTP handlers. The loop publishes every result; handlers only read.
// A failed evaluation keeps the previous snapshot so a transient fetch
// error never flips the switch, it is surfaced as last_error instead.
type State struct {
	mu        sync.RWMutex
	latest    *model.Result
	updatedAt time.Time
	lastErr   string
	flips     []Flip
}

// NewState returns an empty snapshot store.
func NewState() *State {
	return &State{}
}

// Publish stores the outcome of one evaluation. On error the previous
// result is retained; on success the error is cleared and a Flip is
// recorded whenever the active state changed.
func (s *State) Publish(res *model.Result, evalErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evalErr != nil {
		s.lastErr = evalErr.Error()
		return
	}

	prevActive := s.latest != nil && s.latest.Active
	if res.Active != prevActive {
		flip := Flip{At: time.Now(), Active: res.Active}
		if res.Active {
			flip.Summary = res.ActiveSummary
		}
		s.flips = append([]Flip{flip}, s.flips...)
		if len(s.flips) > flipHistoryCap {
			s.flips = s.flips[:flipHistoryCap]
		}
	}

	s.latest = res
	s.updatedAt = time.Now()
	s.lastErr = ""
}

// Snapshot returns the latest successful result, its timestamp, and the
// last evaluation error if the most recent attempt failed.
func (s *State) Snapshot() (*model.Result, time.Time, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.updatedAt, s.lastErr
}

// Flips returns a copy of the switch history, newest first.
func (s *State) Flips() []Flip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Flip, len(s.flips))
	copy(out, s.flips)
	return out
}

// RefreshFunc forces one evaluation and blocks until it completed.
type RefreshFunc func(ctx context.Context) error

// Server exposes the switch state over HTTP: /health, /api/status,
// /api/events, /api/history, and POST /api/refresh.
type Server struct {
	log     *zap.Logger
	state   *State
	refresh RefreshFunc
	app     *fiber.App
}

// NewServer constructs the HTTP server. refresh may be nil, in which case
// POST /api/refresh answers 503.
func NewServer(log *zap.Logger, state *State, refresh RefreshFunc) *Server {
	s := &Server{
		log:     log,
		state:   state,
		refresh: refresh,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(fiberzap.New(fiberzap.Config{
		Logger: log,
	}))
	s.app = app
	s.registerRoutes()
	return s
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/api/status", s.handleStatus)
	s.app.Get("/api/events", s.handleEvents)
	s.app.Get("/api/history", s.handleHistory)
	s.app.Post("/api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// statusResponse is the JSON response shape for /api/status.
type statusResponse struct {
	Active            bool       `json:"active"`
	ActiveSummary     string     `json:"active_summary,omitempty"`
	NextSummary       string     `json:"next_summary,omitempty"`
	Upcoming          []string   `json:"upcoming,omitempty"`
	CalendarZone      string     `json:"calendar_timezone,omitempty"`
	NextTransition    *time.Time `json:"next_transition,omitempty"`
	TransitionReason  string     `json:"transition_reason"`
	EligibleCount     int        `json:"eligible_count"`
	BlocksParsed      int        `json:"blocks_parsed"`
	EventsBuilt       int        `json:"events_built"`
	InstancesExpanded int        `json:"instances_expanded"`
	DiagnosticCount   int        `json:"diagnostic_count"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	res, updatedAt, lastErr := s.state.Snapshot()

	resp := statusResponse{
		TransitionReason: model.ReasonNone,
		LastError:        lastErr,
	}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	if res != nil {
		resp.Active = res.Active
		resp.ActiveSummary = res.ActiveSummary
		resp.NextSummary = res.NextSummary
		resp.Upcoming = res.Upcoming
		resp.CalendarZone = res.CalendarZone
		resp.TransitionReason = res.TransitionReason
		resp.EligibleCount = len(res.Eligible)
		resp.BlocksParsed = res.BlocksParsed
		resp.EventsBuilt = res.EventsBuilt
		resp.InstancesExpanded = res.InstancesExpanded
		resp.DiagnosticCount = len(res.Diagnostics)
		if !res.NextTransition.IsZero() {
			t := res.NextTransition
			resp.NextTransition = &t
		}
	}
	return c.JSON(resp)
}

// instanceDTO is a JSON-friendly view of one eligible instance.
type instanceDTO struct {
	UID       string    `json:"uid"`
	Summary   string    `json:"summary"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	AllDay    bool      `json:"all_day"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Generated bool      `json:"generated"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events    []instanceDTO `json:"events"`
	Count     int           `json:"count"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	res, updatedAt, _ := s.state.Snapshot()

	dtos := []instanceDTO{}
	if res != nil {
		dtos = make([]instanceDTO, 0, len(res.Eligible))
		for _, in := range res.Eligible {
			dtos = append(dtos, instanceDTO{
				UID:       in.UID,
				Summary:   in.Summary,
				Location:  in.Location,
				Status:    in.Status,
				AllDay:    in.AllDay,
				Start:     in.EffectiveStart,
				End:       in.EffectiveEnd,
				Generated: in.Generated,
			})
		}
	}

	resp := eventsResponse{
		Events: dtos,
		Count:  len(dtos),
	}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	return c.JSON(resp)
}

// historyResponse is the JSON response shape for /api/history.
type historyResponse struct {
	Flips []Flip `json:"flips"`
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	return c.JSON(historyResponse{Flips: s.state.Flips()})
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	if s.refresh == nil {
		return writeError(c, fiber.StatusServiceUnavailable, "refresh not available")
	}
	if err := s.refresh(c.UserContext()); err != nil {
		s.log.Warn("manual refresh failed", zap.Error(err))
		return writeError(c, fiber.StatusServiceUnavailable, err.Error())
	}
	return s.handleStatus(c)
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
