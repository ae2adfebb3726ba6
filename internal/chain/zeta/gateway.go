package zeta

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/owentar/zeta-hackathon/internal/cache"
	"github.com/owentar/zeta-hackathon/internal/chain"
	"github.com/owentar/zeta-hackathon/internal/chain/ratelimit"
	"github.com/owentar/zeta-hackathon/internal/circuitbreaker"
	"github.com/owentar/zeta-hackathon/internal/commitment"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/metrics"
	"github.com/owentar/zeta-hackathon/internal/retry"
)

//go:embed agegame.abi.json
var gameABIJSON string

const (
	defaultRPCTimeout     = 30 * time.Second
	defaultConfirmTimeout = 2 * time.Minute
	defaultPollInterval   = 2 * time.Second
	defaultRPS            = 10
	defaultBurst          = 20
	defaultGasBufferPct   = 20
	defaultCacheSize      = 1024
	defaultCacheTTL       = time.Hour
)

// Backend is the subset of *ethclient.Client the gateway uses.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dialer opens a Backend for an RPC URL.
type Dialer func(ctx context.Context, url string) (Backend, error)

func dialEthclient(ctx context.Context, url string) (Backend, error) {
	return ethclient.DialContext(ctx, url)
}

type Config struct {
	// RPCTimeout bounds every single RPC round trip.
	RPCTimeout time.Duration
	// ConfirmTimeout bounds waiting for a receipt after broadcast.
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	RPS            float64
	Burst          int
	GasBufferPct   int
	CacheSize      int
	CacheTTL       time.Duration
	Breaker        circuitbreaker.Config
}

func (c Config) withDefaults() Config {
	if c.RPCTimeout <= 0 {
		c.RPCTimeout = defaultRPCTimeout
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RPS <= 0 {
		c.RPS = defaultRPS
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	if c.GasBufferPct < 0 {
		c.GasBufferPct = 0
	} else if c.GasBufferPct == 0 {
		c.GasBufferPct = defaultGasBufferPct
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	return c
}

type Option func(*Gateway)

// WithDialer replaces the ethclient dialer (tests).
func WithDialer(d Dialer) Option {
	return func(g *Gateway) { g.dial = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

type gameKey struct {
	chain model.ChainID
	id    int64
}

type client struct {
	chainID  model.ChainID
	label    string
	backend  Backend
	contract common.Address
	limiter  *ratelimit.Limiter
	breaker  *circuitbreaker.Breaker
}

// Gateway implements chain.Gateway against the age game contract on
// ZetaChain's EVM.
type Gateway struct {
	registry *chain.Registry
	revealer *chain.Signer
	funder   *chain.Signer
	cfg      Config
	abi      abi.ABI
	dial     Dialer
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[model.ChainID]*client
	// sendLocks serialises nonce assignment per (chain, sender).
	sendLocks map[string]*sync.Mutex

	finished *cache.LRU[gameKey, model.Game]
}

var _ chain.Gateway = (*Gateway)(nil)

// New builds a gateway. Either signer may be nil for processes that never
// use the corresponding write path.
func New(registry *chain.Registry, revealer, funder *chain.Signer, cfg Config, opts ...Option) (*Gateway, error) {
	parsed, err := abi.JSON(strings.NewReader(gameABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse game abi: %w", err)
	}
	cfg = cfg.withDefaults()
	g := &Gateway{
		registry:  registry,
		revealer:  revealer,
		funder:    funder,
		cfg:       cfg,
		abi:       parsed,
		dial:      dialEthclient,
		logger:    slog.Default(),
		clients:   make(map[model.ChainID]*client),
		sendLocks: make(map[string]*sync.Mutex),
		finished:  cache.NewLRU[gameKey, model.Game](cfg.CacheSize, cfg.CacheTTL),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "chain_gateway")
	return g, nil
}

func (g *Gateway) client(ctx context.Context, chainID model.ChainID) (*client, error) {
	ep, err := g.registry.Lookup(chainID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[chainID]; ok {
		return c, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, g.cfg.RPCTimeout)
	defer cancel()
	backend, err := g.dial(dialCtx, ep.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", chainID, err)
	}

	label := chainID.String()
	breakerCfg := g.cfg.Breaker
	breakerCfg.IsFailure = isEndpointFailure
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		metrics.RPCCircuitState.WithLabelValues(label).Set(float64(to))
		g.logger.Warn("rpc circuit state changed", "chain", label, "from", from.String(), "to", to.String())
	}

	c := &client{
		chainID:  chainID,
		label:    label,
		backend:  backend,
		contract: ep.ContractAddress,
		limiter:  ratelimit.NewLimiter(g.cfg.RPS, g.cfg.Burst, label),
		breaker:  circuitbreaker.New(breakerCfg),
	}
	g.clients[chainID] = c
	return c, nil
}

// isEndpointFailure counts only errors that say something about the
// endpoint's health; reverts and caller cancellations do not.
func isEndpointFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return retry.Classify(err).IsTransient()
}

// rpc runs one bounded, rate-limited, breaker-guarded RPC round trip.
func (g *Gateway) rpc(ctx context.Context, c *client, method string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	started := time.Now()
	err := c.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.RPCTimeout)
		defer cancel()
		return fn(callCtx)
	})
	ratelimit.RecordRPCCall(c.label, method, started, err)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (g *Gateway) call(ctx context.Context, c *client, method string, args ...any) ([]byte, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var out []byte
	err = g.rpc(ctx, c, "eth_call:"+method, func(ctx context.Context) error {
		res, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type gameTuple struct {
	Id         *big.Int
	SecretHash [32]byte
	EndTime    *big.Int
	BetAmount  *big.Int
	PotSize    *big.Int
	IsRevealed bool
	IsFinished bool
	Owner      common.Address
	ActualAge  *big.Int
}

type betTuple struct {
	Player     common.Address
	GuessedAge *big.Int
	IsWinner   bool
	IsClaimed  bool
}

func (g *Gateway) ReadGame(ctx context.Context, chainID model.ChainID, gameID int64) (*model.Game, error) {
	key := gameKey{chain: chainID, id: gameID}
	if cached, ok := g.finished.Get(key); ok {
		metrics.GameCacheHits.WithLabelValues(chainID.String()).Inc()
		return &cached, nil
	}

	c, err := g.client(ctx, chainID)
	if err != nil {
		return nil, err
	}
	metrics.GameCacheMisses.WithLabelValues(chainID.String()).Inc()

	raw, err := g.call(ctx, c, "games", big.NewInt(gameID))
	if err != nil {
		return nil, fmt.Errorf("read game %d on %s: %w", gameID, chainID, err)
	}
	var t gameTuple
	if err := g.abi.UnpackIntoInterface(&t, "games", raw); err != nil {
		return nil, fmt.Errorf("decode game %d on %s: %w", gameID, chainID, err)
	}

	game := model.Game{
		ID:         t.Id,
		SecretHash: t.SecretHash,
		EndTime:    t.EndTime,
		BetAmount:  t.BetAmount,
		PotSize:    t.PotSize,
		IsRevealed: t.IsRevealed,
		IsFinished: t.IsFinished,
		Owner:      strings.ToLower(t.Owner.Hex()),
		ActualAge:  t.ActualAge,
	}
	// Finished games never change again.
	if game.IsFinished {
		g.finished.Put(key, game)
	}
	return &game, nil
}

func (g *Gateway) PlayerBet(ctx context.Context, chainID model.ChainID, gameID int64, player string) (*model.PlayerBet, error) {
	if !common.IsHexAddress(player) {
		return nil, fmt.Errorf("invalid player address %q", player)
	}
	c, err := g.client(ctx, chainID)
	if err != nil {
		return nil, err
	}

	raw, err := g.call(ctx, c, "getPlayerBet", big.NewInt(gameID), common.HexToAddress(player))
	if err != nil {
		return nil, fmt.Errorf("read bet of %s in game %d on %s: %w", player, gameID, chainID, err)
	}
	out, err := g.abi.Unpack("getPlayerBet", raw)
	if err != nil || len(out) != 1 {
		return nil, fmt.Errorf("decode bet of %s in game %d: %w", player, gameID, errOr(err, "unexpected output"))
	}
	t, ok := abi.ConvertType(out[0], new(betTuple)).(*betTuple)
	if !ok {
		return nil, fmt.Errorf("decode bet of %s in game %d: unexpected tuple type %T", player, gameID, out[0])
	}
	return &model.PlayerBet{
		Player:     strings.ToLower(t.Player.Hex()),
		GuessedAge: t.GuessedAge,
		IsWinner:   t.IsWinner,
		IsClaimed:  t.IsClaimed,
	}, nil
}

func (g *Gateway) ComputeHash(ctx context.Context, chainID model.ChainID, age int, salt commitment.Salt) (commitment.Hash, error) {
	var h commitment.Hash
	if age < 0 {
		return h, commitment.ErrInvalidAge
	}
	c, err := g.client(ctx, chainID)
	if err != nil {
		return h, err
	}

	raw, err := g.call(ctx, c, "computeHash", big.NewInt(int64(age)), string(salt))
	if err != nil {
		return h, fmt.Errorf("compute hash on %s: %w", chainID, err)
	}
	out, err := g.abi.Unpack("computeHash", raw)
	if err != nil || len(out) != 1 {
		return h, fmt.Errorf("decode computeHash: %w", errOr(err, "unexpected output"))
	}
	b, ok := out[0].([32]byte)
	if !ok {
		return h, fmt.Errorf("decode computeHash: unexpected type %T", out[0])
	}
	return commitment.Hash(b), nil
}

func (g *Gateway) RevealAndFinish(ctx context.Context, chainID model.ChainID, gameID int64, age int, salt commitment.Salt) (*chain.TxReceipt, error) {
	if g.revealer == nil {
		return nil, errors.New("reveal: no revealer identity configured")
	}
	if age < 0 {
		return nil, commitment.ErrInvalidAge
	}
	c, err := g.client(ctx, chainID)
	if err != nil {
		return nil, err
	}

	data, err := g.abi.Pack("revealAndFinishGame", big.NewInt(gameID), big.NewInt(int64(age)), string(salt))
	if err != nil {
		return nil, fmt.Errorf("pack revealAndFinishGame: %w", err)
	}
	receipt, err := g.transact(ctx, c, g.revealer, c.contract, big.NewInt(0), data)
	if err != nil {
		return nil, fmt.Errorf("reveal game %d on %s: %w", gameID, chainID, err)
	}
	g.logger.Info("game revealed on-chain", "chain", chainID.String(), "game_id", gameID, "tx_hash", receipt.Hash)
	return receipt, nil
}

func (g *Gateway) TransferNative(ctx context.Context, chainID model.ChainID, to string, amountWei *big.Int) (*chain.TxReceipt, error) {
	if g.funder == nil {
		return nil, errors.New("transfer: no funding identity configured")
	}
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("transfer: invalid recipient address %q", to)
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, fmt.Errorf("transfer: amount must be positive")
	}
	c, err := g.client(ctx, chainID)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	err = g.rpc(ctx, c, "eth_getBalance", func(ctx context.Context) error {
		b, err := c.backend.BalanceAt(ctx, g.funder.Address(), nil)
		balance = b
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read funding balance on %s: %w", chainID, err)
	}
	if balance.Cmp(amountWei) < 0 {
		return nil, fmt.Errorf("required %s wei, available %s wei on %s: %w",
			amountWei, balance, chainID, chain.ErrInsufficientFunds)
	}

	receipt, err := g.transact(ctx, c, g.funder, common.HexToAddress(to), amountWei, nil)
	if err != nil {
		return nil, fmt.Errorf("transfer to %s on %s: %w", to, chainID, err)
	}
	return receipt, nil
}

func (g *Gateway) sendLock(c *client, from common.Address) *sync.Mutex {
	key := c.label + ":" + from.Hex()
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.sendLocks[key]
	if !ok {
		l = &sync.Mutex{}
		g.sendLocks[key] = l
	}
	return l
}

// transact signs and broadcasts a legacy transaction, then waits for its
// receipt. Errors after a successful broadcast wrap chain.ErrOutcomeUnknown.
func (g *Gateway) transact(ctx context.Context, c *client, signer *chain.Signer, to common.Address, value *big.Int, data []byte) (*chain.TxReceipt, error) {
	signed, err := g.signAndSend(ctx, c, signer, to, value, data)
	if err != nil {
		return nil, err
	}
	return g.waitMined(ctx, c, signed.Hash())
}

func (g *Gateway) signAndSend(ctx context.Context, c *client, signer *chain.Signer, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	lock := g.sendLock(c, signer.Address())
	lock.Lock()
	defer lock.Unlock()

	from := signer.Address()

	var nonce uint64
	if err := g.rpc(ctx, c, "eth_getTransactionCount", func(ctx context.Context) error {
		n, err := c.backend.PendingNonceAt(ctx, from)
		nonce = n
		return err
	}); err != nil {
		return nil, err
	}

	var gasPrice *big.Int
	if err := g.rpc(ctx, c, "eth_gasPrice", func(ctx context.Context) error {
		p, err := c.backend.SuggestGasPrice(ctx)
		gasPrice = p
		return err
	}); err != nil {
		return nil, err
	}

	var gas uint64
	if err := g.rpc(ctx, c, "eth_estimateGas", func(ctx context.Context) error {
		est, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
		gas = est
		return err
	}); err != nil {
		return nil, err
	}
	gas += gas * uint64(g.cfg.GasBufferPct) / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(int64(c.chainID))), signer.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	attempted := false
	if err := g.rpc(ctx, c, "eth_sendRawTransaction", func(ctx context.Context) error {
		attempted = true
		return c.backend.SendTransaction(ctx, signed)
	}); err != nil {
		// Once the raw bytes left the process the node may have accepted
		// them even though the reply was lost. Only a rejection the node
		// states explicitly proves nothing was queued.
		if attempted && !rejectedBeforeBroadcast(err) {
			return nil, fmt.Errorf("send %s: %w: %w", signed.Hash().Hex(), chain.ErrOutcomeUnknown, err)
		}
		return nil, err
	}
	g.logger.Debug("transaction broadcast", "chain", c.label, "tx_hash", signed.Hash().Hex(), "nonce", nonce)
	return signed, nil
}

// preBroadcastRejections are node replies that mean the transaction was
// refused at admission and never entered the pool.
var preBroadcastRejections = []string{
	"insufficient funds",
	"nonce too low",
	"nonce too high",
	"replacement transaction underpriced",
	"transaction underpriced",
	"intrinsic gas too low",
	"exceeds block gas limit",
	"gas limit reached",
	"invalid sender",
	"oversized data",
}

func rejectedBeforeBroadcast(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range preBroadcastRejections {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func (g *Gateway) waitMined(ctx context.Context, c *client, hash common.Hash) (*chain.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := g.rpc(ctx, c, "eth_getTransactionReceipt", func(ctx context.Context) error {
			r, err := c.backend.TransactionReceipt(ctx, hash)
			receipt = r
			return err
		})
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("tx %s: %w", hash.Hex(), chain.ErrTxReverted)
			}
			out := &chain.TxReceipt{Hash: hash.Hex(), GasUsed: receipt.GasUsed}
			if receipt.BlockNumber != nil {
				out.BlockNumber = receipt.BlockNumber.Uint64()
			}
			return out, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			g.logger.Warn("receipt poll failed", "chain", c.label, "tx_hash", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("await tx %s: %w: %w", hash.Hex(), chain.ErrOutcomeUnknown, ctx.Err())
		case <-ticker.C:
		}
	}
}

func errOr(err error, msg string) error {
	if err != nil {
		return err
	}
	return errors.New(msg)
}
