// Package api is the public JSON surface of the game backend.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/owentar/zeta-hackathon/internal/apperr"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/game"
)

const (
	// Data URLs of phone photos run to a few MB.
	DefaultMaxBodyBytes = 10 << 20

	chainIDMessage = "Chain ID must be either 7000 or 7001"
)

// GameService is the orchestrator surface the handlers drive.
type GameService interface {
	CreateEstimation(ctx context.Context, in game.CreateInput) (int64, error)
	StartGame(ctx context.Context, id int64) (*game.StartResult, error)
	FinishGame(ctx context.Context, id int64) (*model.PublicEstimation, error)
	LegacyReveal(ctx context.Context, id int64) (*model.PublicEstimation, error)
	GetEstimation(ctx context.Context, id int64) (*game.EstimationView, error)
	ListEstimations(ctx context.Context, in game.ListInput) (*game.ListResult, error)
	PlayerBet(ctx context.Context, id int64, player string) (*game.BetView, error)
}

type AgeEstimator interface {
	EstimateAge(ctx context.Context, imageDataURL string) (int, error)
}

type ImageUploader interface {
	UploadImage(ctx context.Context, imageDataURL string) (string, error)
}

type Config struct {
	CORSOrigin     string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

type Server struct {
	games     GameService
	estimator AgeEstimator
	uploader  ImageUploader
	cfg       Config
	limiter   *ipLimiter
	logger    *slog.Logger
}

func NewServer(games GameService, estimator AgeEstimator, uploader ImageUploader, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	s := &Server{
		games:     games,
		estimator: estimator,
		uploader:  uploader,
		cfg:       cfg,
		logger:    logger.With("component", "api"),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return s
}

// Stop releases the rate limiter's sweeper.
func (s *Server) Stop() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Handler builds the gin engine. The gin mode is left to the caller.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(s.recovery(), s.requestLogger(), s.cors())
	if s.limiter != nil {
		r.Use(s.rateLimit())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/age-estimation", s.handleCreateEstimation)
	r.GET("/age-estimations", s.handleListEstimations)

	est := r.Group("/age-estimation/:id")
	est.GET("", s.handleGetEstimation)
	est.POST("/start-game", s.handleStartGame)
	est.POST("/finish-game", s.handleFinishGame)
	est.POST("/reveal", s.handleLegacyReveal)
	est.GET("/bets/:player", s.handlePlayerBet)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

type createEstimationRequest struct {
	ImageDataURL  string          `json:"imageDataURL"`
	WalletAddress string          `json:"walletAddress"`
	ChainID       json.RawMessage `json:"chainId"`
}

type createEstimationResponse struct {
	CloudinaryPublicID string `json:"cloudinaryPublicId"`
	EstimationID       int64  `json:"estimationId"`
}

func (s *Server) handleCreateEstimation(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	var req createEstimationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.Validation("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.ImageDataURL) == "" {
		s.writeError(c, apperr.Validation("imageDataURL is required"))
		return
	}
	wallet, err := game.NormalizeWallet(req.WalletAddress)
	if err != nil {
		s.writeError(c, err)
		return
	}
	chainID, err := parseChainIDField(req.ChainID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	age, err := s.estimator.EstimateAge(ctx, req.ImageDataURL)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			s.logger.WarnContext(ctx, "age estimation rejected", "wallet", wallet, "reason", apperr.PublicMessage(err))
		}
		s.writeError(c, err)
		return
	}
	publicID, err := s.uploader.UploadImage(ctx, req.ImageDataURL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	id, err := s.games.CreateEstimation(ctx, game.CreateInput{
		ImageRef: publicID,
		Age:      age,
		Wallet:   wallet,
		ChainID:  chainID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, createEstimationResponse{CloudinaryPublicID: publicID, EstimationID: id})
}

func (s *Server) handleStartGame(c *gin.Context) {
	id, ok := s.estimationID(c)
	if !ok {
		return
	}
	res, err := s.games.StartGame(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleFinishGame(c *gin.Context) {
	id, ok := s.estimationID(c)
	if !ok {
		return
	}
	rec, err := s.games.FinishGame(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleLegacyReveal(c *gin.Context) {
	id, ok := s.estimationID(c)
	if !ok {
		return
	}
	rec, err := s.games.LegacyReveal(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleGetEstimation(c *gin.Context) {
	id, ok := s.estimationID(c)
	if !ok {
		return
	}
	view, err := s.games.GetEstimation(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handlePlayerBet(c *gin.Context) {
	id, ok := s.estimationID(c)
	if !ok {
		return
	}
	view, err := s.games.PlayerBet(c.Request.Context(), id, c.Param("player"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleListEstimations(c *gin.Context) {
	var in game.ListInput
	var err error
	if in.Limit, err = queryInt(c, "limit"); err != nil {
		s.writeError(c, err)
		return
	}
	if in.Offset, err = queryInt(c, "offset"); err != nil {
		s.writeError(c, err)
		return
	}
	if raw := c.Query("chain_id"); raw != "" {
		chainID, err := model.ParseChainID(raw)
		if err != nil {
			s.writeError(c, apperr.Validation(chainIDMessage))
			return
		}
		in.ChainID = &chainID
	}

	res, err := s.games.ListEstimations(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) estimationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(c, apperr.Validation("Invalid estimation id"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", key)
	}
	return v, nil
}

// parseChainIDField accepts the chain id as a JSON number or a numeric string.
func parseChainIDField(raw json.RawMessage) (model.ChainID, error) {
	v := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	chainID, err := model.ParseChainID(v)
	if err != nil {
		return 0, apperr.Validation(chainIDMessage)
	}
	return chainID, nil
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"kind", string(kind),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
