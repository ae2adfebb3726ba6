package model

import (
	"math/big"
	"time"
)

// ZeroAddress is the owner of a game id that was never created on-chain.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Game mirrors the contract's games(id) tuple. Addresses are lower-cased hex.
type Game struct {
	ID         *big.Int
	SecretHash [32]byte
	EndTime    *big.Int
	BetAmount  *big.Int
	PotSize    *big.Int
	IsRevealed bool
	IsFinished bool
	Owner      string
	ActualAge  *big.Int
}

// Started reports whether createGame has been called for this id.
func (g *Game) Started() bool {
	return g != nil && g.Owner != "" && g.Owner != ZeroAddress
}

// EndDate converts the on-chain unix end time into a UTC timestamp.
func (g *Game) EndDate() time.Time {
	if g == nil || g.EndTime == nil {
		return time.Time{}
	}
	return time.Unix(g.EndTime.Int64(), 0).UTC()
}

// PlayerBet mirrors the contract's Bet struct returned by getPlayerBet.
type PlayerBet struct {
	Player     string   `json:"player"`
	GuessedAge *big.Int `json:"guessed_age"`
	IsWinner   bool     `json:"is_winner"`
	IsClaimed  bool     `json:"is_claimed"`
}

// Placed reports whether the player has a bet on the game.
func (b *PlayerBet) Placed() bool {
	return b != nil && b.Player != "" && b.Player != ZeroAddress
}
