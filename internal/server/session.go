package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/tiledwfc/internal/generator"
	"github.com/lawnchairsociety/tiledwfc/internal/logger"
	"github.com/lawnchairsociety/tiledwfc/internal/store"
	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

var ErrTooLarge = errors.New("server: grid exceeds max_cells")

const writeTimeout = 10 * time.Second

// Message types sent to the client.
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// Request asks for one generation run. Zero fields take the server's
// configured defaults; an empty seed picks a random one.
type Request struct {
	Tileset  string `json:"tileset"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Seed     string `json:"seed"`
	Limit    *int   `json:"limit,omitempty"`
	Attempts int    `json:"attempts"`
	Periodic bool   `json:"periodic"`
}

// Message is a server-to-client frame.
type Message struct {
	Type     string              `json:"type"`
	Progress *generator.Progress `json:"progress,omitempty"`
	Result   *ResultPayload      `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// ResultPayload describes a finished run.
type ResultPayload struct {
	Tileset  string `json:"tileset"`
	Status   string `json:"status"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Steps    int    `json:"steps"`
	Attempts int    `json:"attempts"`
	Seed     string `json:"seed"`
	Observed []int  `json:"observed"`
	Text     string `json:"text"`
	RunID    int64  `json:"run_id,omitempty"`
}

// job is a validated request.
type job struct {
	tileset string
	model   *wfc.Model
	config  generator.Config
	seed    wfc.Seed
}

// prepare applies defaults to req and checks it against the server limits.
func (s *Server) prepare(req Request) (*job, error) {
	name := req.Tileset
	if name == "" {
		name = s.fallback
	}
	model, err := s.model(name)
	if err != nil {
		return nil, err
	}

	cfg := s.defaults
	cfg.Periodic = req.Periodic
	if req.Width != 0 {
		cfg.Width = req.Width
	}
	if req.Height != 0 {
		cfg.Height = req.Height
	}
	if req.Limit != nil {
		cfg.Limit = *req.Limit
	}
	if req.Attempts != 0 {
		cfg.MaxAttempts = req.Attempts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// compare by division so huge dimensions cannot wrap the product
	if cfg.Width > s.cfg.MaxCells/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d cells", ErrTooLarge, cfg.Width, cfg.Height, s.cfg.MaxCells)
	}

	phrase := req.Seed
	if phrase == "" {
		phrase = uuid.NewString()
	}
	return &job{tileset: name, model: model, config: cfg, seed: wfc.ParseSeed(phrase)}, nil
}

// session is one WebSocket client. Requests are handled one at a time; a
// disconnect cancels the run in progress.
type session struct {
	srv      *Server
	conn     *websocket.Conn
	id       string
	ip       string
	requests chan []byte
	ctx      context.Context
	cancel   context.CancelFunc
}

func newSession(srv *Server, conn *websocket.Conn, ip string) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		srv:      srv,
		conn:     conn,
		id:       uuid.NewString(),
		ip:       ip,
		requests: make(chan []byte, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *session) run() {
	defer c.conn.Close()
	defer c.cancel()

	c.srv.metrics.SessionOpened()
	defer c.srv.metrics.SessionClosed()

	logger.Info("Session opened", "session", c.id, "client_ip", c.ip)
	defer logger.Info("Session closed", "session", c.id)

	c.conn.SetReadLimit(c.srv.cfg.MaxMessageSize)
	go c.readLoop()

	for data := range c.requests {
		if err := c.handle(data); err != nil {
			logger.Debug("Session write failed", "session", c.id, "error", err)
			return
		}
	}
}

func (c *session) readLoop() {
	defer close(c.requests)
	defer c.cancel()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Session read failed", "session", c.id, "error", err)
			}
			return
		}
		select {
		case c.requests <- data:
		case <-c.ctx.Done():
			return
		}
	}
}

// handle runs one request. Only write failures are returned; request and
// generation errors are reported to the client.
func (c *session) handle(data []byte) error {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return c.sendError(fmt.Errorf("invalid request: %w", err))
	}

	j, err := c.srv.prepare(req)
	if err != nil {
		return c.sendError(err)
	}

	gen, err := generator.New(j.tileset, j.model, j.config)
	if err != nil {
		return c.sendError(err)
	}
	gen.Metrics = c.srv.metrics

	var writeErr error
	gen.OnProgress = func(p generator.Progress) {
		if writeErr != nil {
			return
		}
		if writeErr = c.send(Message{Type: MessageProgress, Progress: &p}); writeErr != nil {
			c.cancel()
		}
	}

	logger.Debug("Generation requested",
		"session", c.id,
		"tileset", j.tileset,
		"width", j.config.Width,
		"height", j.config.Height)

	outcome, err := gen.Generate(c.ctx, j.seed)
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		return c.sendError(err)
	}

	res := outcome.Result
	payload := &ResultPayload{
		Tileset:  j.tileset,
		Status:   res.Status.String(),
		Width:    res.Width,
		Height:   res.Height,
		Steps:    res.Steps,
		Attempts: outcome.Attempts,
		Seed:     outcome.Seed.String(),
		Observed: res.Observed,
		Text:     res.Text(j.model.VariantNames()),
	}

	if c.srv.store != nil {
		run := store.NewRun(j.tileset, res, outcome.Attempts)
		err := c.srv.store.SaveRun(run)
		switch {
		case errors.Is(err, store.ErrDuplicateRun):
			logger.Debug("Run already saved", "session", c.id, "id", run.ID)
			payload.RunID = run.ID
		case err != nil:
			logger.Error("Failed to save run", "session", c.id, "tileset", j.tileset, "error", err)
		default:
			payload.RunID = run.ID
		}
	}

	return c.send(Message{Type: MessageResult, Result: payload})
}

func (c *session) send(msg Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *session) sendError(err error) error {
	logger.Debug("Request failed", "session", c.id, "error", err)
	return c.send(Message{Type: MessageError, Error: err.Error()})
}
