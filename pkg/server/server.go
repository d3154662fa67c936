package server

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/oarkflow/convert"
	"github.com/oarkflow/json"
	"github.com/oarkflow/log"
	"github.com/oarkflow/xid"

	"github.com/oarkflow/calc"
	"github.com/oarkflow/calc/pkg/config"
)

type Config struct {
	Version   string
	AccessLog bool
}

// session serialises the lines of one client. calc.Session itself is single
// owner.
type session struct {
	mu   sync.Mutex
	calc *calc.Session
}

type Server struct {
	app      *fiber.App
	cfg      *config.Config
	config   Config
	cache    *calc.TokenCache
	logger   *log.Logger
	mu       sync.RWMutex
	sessions map[string]*session
}

type EvalRequest struct {
	Line string `json:"line"`
}

type EvalResponse struct {
	Value *float64 `json:"value,omitempty"`
	Text  string   `json:"text,omitempty"`
	Void  bool     `json:"void,omitempty"`
}

type SetVarRequest struct {
	Value any `json:"value"`
}

type SymbolResponse struct {
	Name  string   `json:"name"`
	Kind  string   `json:"kind"`
	Value *float64 `json:"value,omitempty"`
	Arity *int     `json:"arity,omitempty"`
	Index *int     `json:"index,omitempty"`
}

type Options func(*Server)

func WithLogger(l *log.Logger) Options {
	return func(s *Server) {
		s.logger = l
	}
}

// WithTokenCache shares one token cache between all sessions.
func WithTokenCache(cache *calc.TokenCache) Options {
	return func(s *Server) {
		s.cache = cache
	}
}

func NewServer(cfg *config.Config, serverCfg Config, opts ...Options) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	app := fiber.New(fiber.Config{
		JSONEncoder: func(v any) ([]byte, error) {
			return json.Marshal(v)
		},
		JSONDecoder: func(data []byte, v any) error {
			return json.Unmarshal(data, v)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})
	s := &Server{
		app:      app,
		cfg:      cfg,
		config:   serverCfg,
		logger:   &log.DefaultLogger,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())
	if s.config.AccessLog {
		s.app.Use(logger.New())
	}

	s.app.Get("/api/health", s.healthHandler)

	s.app.Post("/api/sessions", s.createSessionHandler)
	s.app.Delete("/api/sessions/:id", s.deleteSessionHandler)
	s.app.Post("/api/sessions/:id/eval", s.evalHandler)
	s.app.Get("/api/sessions/:id/symbols", s.symbolsHandler)
	s.app.Put("/api/sessions/:id/vars/:name", s.setVarHandler)
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	s.mu.RLock()
	count := len(s.sessions)
	s.mu.RUnlock()
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   s.config.Version,
		"sessions":  count,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) createSessionHandler(c *fiber.Ctx) error {
	s.mu.Lock()
	if limit := s.cfg.Server.MaxSessions; limit > 0 && len(s.sessions) >= limit {
		s.mu.Unlock()
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "session limit reached"})
	}
	id := xid.New().String()
	s.sessions[id] = &session{
		calc: calc.NewSession(
			calc.WithLogger(s.logger),
			calc.WithTokenCache(s.cache),
			calc.WithRuntimeConfig(s.cfg.ApplyRuntime()),
		),
	}
	s.mu.Unlock()

	s.logger.Info().Str("session", id).Msg("session created")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *Server) deleteSessionHandler(c *fiber.Ctx) error {
	id := c.Params("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.JSON(fiber.Map{"message": "session deleted"})
}

func (s *Server) lookup(c *fiber.Ctx) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[c.Params("id")]
	s.mu.RUnlock()
	if !ok {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return sess, nil
}

func (s *Server) evalHandler(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	var req EvalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	sess.mu.Lock()
	res, err := sess.calc.Run(req.Line)
	sess.mu.Unlock()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(err))
	}
	if !res.HasValue {
		return c.JSON(EvalResponse{Void: true})
	}
	return c.JSON(EvalResponse{
		Value: finite(res.Value),
		Text:  calc.FormatNumber(res.Value),
	})
}

func (s *Server) symbolsHandler(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	sess.mu.Lock()
	symbols := sess.calc.Context().Symbols()
	sess.mu.Unlock()

	out := make([]SymbolResponse, 0, len(symbols))
	for _, sym := range symbols {
		item := SymbolResponse{Name: sym.Name, Kind: string(sym.Kind)}
		switch sym.Kind {
		case calc.VariableSymbol:
			item.Value = finite(sym.Value)
		case calc.FunctionSymbol:
			arity := sym.Arity
			item.Arity = &arity
		case calc.ArgumentSymbol:
			index := sym.Index
			item.Index = &index
		}
		out = append(out, item)
	}
	return c.JSON(out)
}

// setVarHandler seeds a variable from any JSON scalar that converts to a
// number, including numeric strings.
func (s *Server) setVarHandler(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	var req SetVarRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	value, ok := convert.ToFloat64(req.Value)
	if str, isString := req.Value.(string); isString && strings.TrimSpace(str) == "" {
		ok = false
	}
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "value is not a number"})
	}

	name := c.Params("name")
	sess.mu.Lock()
	err = sess.calc.SetVar(name, float32(value))
	_, isFunc := sess.calc.Context().GetFunc(name)
	sess.mu.Unlock()
	if err != nil {
		status := fiber.StatusBadRequest
		if isFunc {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(errorBody(err))
	}
	return c.JSON(fiber.Map{"name": name, "value": finite(float32(value))})
}

func errorBody(err error) fiber.Map {
	body := fiber.Map{"error": err.Error()}
	var calcErr *calc.CalcError
	if errors.As(err, &calcErr) {
		body["code"] = calcErr.Code
	}
	return body
}

// finite returns nil for NaN and infinities, which JSON cannot carry. The
// shortest float32 rendering is reparsed so 10.3 does not widen to
// 10.300000190734863.
func finite(v float32) *float64 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return nil
	}
	f, err := strconv.ParseFloat(calc.FormatNumber(v), 64)
	if err != nil {
		return nil
	}
	return &f
}

func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = s.cfg.Server.Address
	}
	s.logger.Info().Str("address", addr).Msg("starting calc server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
