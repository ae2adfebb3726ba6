package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owentar/zeta-hackathon/internal/apperr"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/game"
	"github.com/owentar/zeta-hackathon/internal/vision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testWallet = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testImage  = "data:image/jpeg;base64,/9j/4AAQ"
)

type fakeGames struct {
	created  []game.CreateInput
	listed   []game.ListInput
	startErr error
	start    *game.StartResult
	view     *game.EstimationView
	getErr   error
	finished *model.PublicEstimation
	bet      *game.BetView
	betArgs  []string
}

func (f *fakeGames) CreateEstimation(_ context.Context, in game.CreateInput) (int64, error) {
	f.created = append(f.created, in)
	return 42, nil
}

func (f *fakeGames) StartGame(_ context.Context, id int64) (*game.StartResult, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.start, nil
}

func (f *fakeGames) FinishGame(_ context.Context, id int64) (*model.PublicEstimation, error) {
	return f.finished, nil
}

func (f *fakeGames) LegacyReveal(_ context.Context, id int64) (*model.PublicEstimation, error) {
	return nil, apperr.BusinessRule("Legacy reveal disabled")
}

func (f *fakeGames) GetEstimation(_ context.Context, id int64) (*game.EstimationView, error) {
	return f.view, f.getErr
}

func (f *fakeGames) ListEstimations(_ context.Context, in game.ListInput) (*game.ListResult, error) {
	f.listed = append(f.listed, in)
	return &game.ListResult{Items: []model.PublicEstimation{}, Limit: 20}, nil
}

func (f *fakeGames) PlayerBet(_ context.Context, id int64, player string) (*game.BetView, error) {
	f.betArgs = append(f.betArgs, player)
	return f.bet, nil
}

type fakeEstimator struct {
	age   int
	err   error
	calls int
}

func (f *fakeEstimator) EstimateAge(context.Context, string) (int, error) {
	f.calls++
	return f.age, f.err
}

type fakeUploader struct {
	id    string
	err   error
	calls int
}

func (f *fakeUploader) UploadImage(context.Context, string) (string, error) {
	f.calls++
	return f.id, f.err
}

type harness struct {
	games     *fakeGames
	estimator *fakeEstimator
	uploader  *fakeUploader
	server    *Server
	handler   http.Handler
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		games:     &fakeGames{},
		estimator: &fakeEstimator{age: 30},
		uploader:  &fakeUploader{id: "age-lens/abc"},
	}
	h.server = NewServer(h.games, h.estimator, h.uploader, cfg, slog.Default())
	t.Cleanup(h.server.Stop)
	h.handler = h.server.Handler()
	return h
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateEstimation(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodPost, "/age-estimation",
		`{"imageDataURL":"`+testImage+`","walletAddress":"`+testWallet+`","chainId":7001}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "age-lens/abc", body["cloudinaryPublicId"])
	assert.Equal(t, float64(42), body["estimationId"])

	require.Len(t, h.games.created, 1)
	assert.Equal(t, game.CreateInput{
		ImageRef: "age-lens/abc",
		Age:      30,
		Wallet:   strings.ToLower(testWallet),
		ChainID:  model.ChainZetaTestnet,
	}, h.games.created[0])
}

func TestCreateEstimation_ChainIDAsString(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodPost, "/age-estimation",
		`{"imageDataURL":"`+testImage+`","walletAddress":"`+testWallet+`","chainId":"7000"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ChainZetaMainnet, h.games.created[0].ChainID)
}

func TestCreateEstimation_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad chain", `{"imageDataURL":"` + testImage + `","walletAddress":"` + testWallet + `","chainId":1}`, "Chain ID must be either 7000 or 7001"},
		{"missing chain", `{"imageDataURL":"` + testImage + `","walletAddress":"` + testWallet + `"}`, "Chain ID must be either 7000 or 7001"},
		{"bad wallet", `{"imageDataURL":"` + testImage + `","walletAddress":"0x123","chainId":7001}`, "Invalid wallet"},
		{"missing image", `{"walletAddress":"` + testWallet + `","chainId":7001}`, "imageDataURL is required"},
		{"not json", `{`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			rec := h.do(http.MethodPost, "/age-estimation", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeBody(t, rec)["error"])
			assert.Zero(t, h.estimator.calls, "vision must not be called on invalid input")
			assert.Empty(t, h.games.created)
		})
	}
}

func TestCreateEstimation_NoFace(t *testing.T) {
	h := newHarness(t, Config{})
	h.estimator.err = &apperr.Error{Kind: apperr.KindValidation, Msg: "No face detected", Err: vision.ErrNoFace}

	rec := h.do(http.MethodPost, "/age-estimation",
		`{"imageDataURL":"`+testImage+`","walletAddress":"`+testWallet+`","chainId":7001}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No face detected", decodeBody(t, rec)["error"])
	assert.Zero(t, h.uploader.calls)
	assert.Empty(t, h.games.created)
}

func TestCreateEstimation_UploadFailure(t *testing.T) {
	h := newHarness(t, Config{})
	h.uploader.err = apperr.ExternalService("image upload failed", errors.New("status 500"))

	rec := h.do(http.MethodPost, "/age-estimation",
		`{"imageDataURL":"`+testImage+`","walletAddress":"`+testWallet+`","chainId":7001}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "upstream service failure: image upload failed", decodeBody(t, rec)["error"])
	assert.Empty(t, h.games.created)
}

func TestStartGame(t *testing.T) {
	h := newHarness(t, Config{})
	h.games.start = &game.StartResult{ID: 7, AgeHash: "0xabc", IsRewarded: true}

	rec := h.do(http.MethodPost, "/age-estimation/7/start-game", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"id": float64(7), "ageHash": "0xabc", "isRewarded": true}, decodeBody(t, rec))
}

func TestStartGame_ErrorKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.NotFound("Age estimation %d not found", 7), http.StatusNotFound, "Age estimation 7 not found"},
		{apperr.BusinessRule("Game already started"), http.StatusBadRequest, "Game already started"},
		{apperr.ExternalService("read on-chain game", errors.New("dial tcp")), http.StatusInternalServerError, "upstream service failure: read on-chain game"},
		{errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		h := newHarness(t, Config{})
		h.games.startErr = tt.err

		rec := h.do(http.MethodPost, "/age-estimation/7/start-game", "")
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
	}
}

func TestInvalidEstimationID(t *testing.T) {
	h := newHarness(t, Config{})

	for _, path := range []string{"/age-estimation/abc", "/age-estimation/0/start-game", "/age-estimation/-3/finish-game"} {
		method := http.MethodPost
		if !strings.Contains(path, "game") {
			method = http.MethodGet
		}
		rec := h.do(method, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "Invalid estimation id", decodeBody(t, rec)["error"], path)
	}
}

func TestGetEstimation_MasksAge(t *testing.T) {
	h := newHarness(t, Config{})
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.games.view = &game.EstimationView{
		PublicEstimation: model.PublicEstimation{ID: 7, Status: model.EstimationUnrevealed, EndDate: &end},
		Phase:            game.PhaseOpen,
	}

	rec := h.do(http.MethodGet, "/age-estimation/7", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Nil(t, body["estimated_age"])
	assert.Equal(t, "UNREVEALED", body["status"])
	assert.Equal(t, string(game.PhaseOpen), body["phase"])
	assert.Equal(t, "2026-01-01T00:00:00Z", body["end_date"])
}

func TestFinishGame(t *testing.T) {
	h := newHarness(t, Config{})
	age := 30
	h.games.finished = &model.PublicEstimation{ID: 7, Status: model.EstimationRevealed, EstimatedAge: &age}

	rec := h.do(http.MethodPost, "/age-estimation/7/finish-game", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "REVEALED", body["status"])
	assert.Equal(t, float64(30), body["estimated_age"])
}

func TestLegacyReveal_Disabled(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodPost, "/age-estimation/7/reveal", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Legacy reveal disabled", decodeBody(t, rec)["error"])
}

func TestPlayerBet(t *testing.T) {
	h := newHarness(t, Config{})
	h.games.bet = &game.BetView{EstimationID: 7, GameFinished: true, Claimable: true}

	rec := h.do(http.MethodGet, "/age-estimation/7/bets/"+testWallet, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["claimable"])
	assert.Equal(t, []string{testWallet}, h.games.betArgs)
}

func TestListEstimations_Query(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodGet, "/age-estimations?limit=5&offset=10&chain_id=7001", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.games.listed, 1)
	in := h.games.listed[0]
	assert.Equal(t, 5, in.Limit)
	assert.Equal(t, 10, in.Offset)
	require.NotNil(t, in.ChainID)
	assert.Equal(t, model.ChainZetaTestnet, *in.ChainID)
	assert.Equal(t, []any{}, decodeBody(t, rec)["items"])
}

func TestListEstimations_BadQuery(t *testing.T) {
	h := newHarness(t, Config{})

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/age-estimations?limit=x", "").Code)
	rec := h.do(http.MethodGet, "/age-estimations?chain_id=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Chain ID must be either 7000 or 7001", decodeBody(t, rec)["error"])
	assert.Empty(t, h.games.listed)
}

func TestHealthAndCORS(t *testing.T) {
	h := newHarness(t, Config{CORSOrigin: "https://agelens.app"})

	rec := h.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.Equal(t, "https://agelens.app", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = h.do(http.MethodOptions, "/age-estimation", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, Config{RateLimitRPS: 0.001, RateLimitBurst: 2})

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "").Code)
	rec := h.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decodeBody(t, rec)["error"])
}

func TestIPLimiter_EvictsIdle(t *testing.T) {
	l := newIPLimiter(1, 1)
	defer l.Stop()
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.size())

	now = now.Add(staleLimiterTTL + time.Second)
	l.Allow("10.0.0.2")
	l.evictStale()
	assert.Equal(t, 1, l.size())
}

func TestNoRoute(t *testing.T) {
	h := newHarness(t, Config{})
	rec := h.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
