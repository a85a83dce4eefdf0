package models

import (
	"fmt"
	"time"
)

// MaxAttempts is how many times a player may ever play the same game.
const MaxAttempts = 2

type Result string

const (
	ResultWin  Result = "Win"
	ResultLose Result = "Lose"
)

func (r Result) Valid() bool {
	return r == ResultWin || r == ResultLose
}

// GameHistory is one settled attempt in a player's record.
type GameHistory struct {
	GameID    string    `bson:"gameId" json:"gameId"`
	GameName  string    `bson:"gameName" json:"gameName"`
	Result    Result    `bson:"result" json:"result"`
	Points    int       `bson:"points" json:"points"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// OpenAttempt binds a player to an active game instance until it is settled.
// EntryCost is what was debited at start and is what a win refunds.
type OpenAttempt struct {
	InstanceID string `bson:"instanceId" json:"instanceId"`
	GameID     string `bson:"gameId" json:"gameId"`
	EntryCost  int    `bson:"entryCost" json:"entryCost"`
}

type Player struct {
	PlayerID       string        `bson:"playerId" json:"playerId"`
	Name           string        `bson:"name" json:"name"`
	Department     string        `bson:"department" json:"department"`
	Contact        string        `bson:"contact" json:"contact"`
	Tokens         int           `bson:"tokens" json:"tokens"`
	Points         int           `bson:"points" json:"points"`
	GamesPlayed    int           `bson:"gamesPlayed" json:"gamesPlayed"`
	OpponentsFaced []string      `bson:"opponentsFaced" json:"opponentsFaced"`
	GameHistory    []GameHistory `bson:"gameHistory" json:"gameHistory"`
	OpenAttempts   []OpenAttempt `bson:"openAttempts" json:"openAttempts"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
	Version        int64         `bson:"version" json:"-"` // bumped by every store write
}

func NewPlayer(playerID, name, department, contact string, startingTokens int, now time.Time) *Player {
	return &Player{
		PlayerID:       playerID,
		Name:           name,
		Department:     department,
		Contact:        contact,
		Tokens:         startingTokens,
		OpponentsFaced: []string{},
		GameHistory:    []GameHistory{},
		OpenAttempts:   []OpenAttempt{},
		CreatedAt:      now,
	}
}

// FormatPlayerID renders the n-th player id, e.g. ARX007.
func FormatPlayerID(prefix string, n int64) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// DebitTokens takes amount tokens from the balance. Callers check the balance
// first, so going negative is a programming error.
func (p *Player) DebitTokens(amount int) {
	if amount < 0 {
		panic(fmt.Sprintf("models: negative debit %d for player %s", amount, p.PlayerID))
	}
	if p.Tokens-amount < 0 {
		panic(fmt.Sprintf("models: debit of %d overdraws player %s (balance %d)", amount, p.PlayerID, p.Tokens))
	}
	p.Tokens -= amount
}

// CreditWin awards points and returns the entry cost paid at start.
func (p *Player) CreditWin(points, refund int) {
	p.Points += points
	p.Tokens += refund
}

// RecordHistory appends a settled attempt and merges the opponents met in it.
func (p *Player) RecordHistory(entry GameHistory, opponents []string) {
	p.GameHistory = append(p.GameHistory, entry)
	p.GamesPlayed++

	for _, o := range opponents {
		if o == p.PlayerID || p.HasFaced(o) {
			continue
		}
		p.OpponentsFaced = append(p.OpponentsFaced, o)
	}
}

func (p *Player) HasFaced(playerID string) bool {
	for _, o := range p.OpponentsFaced {
		if o == playerID {
			return true
		}
	}
	return false
}

func (p *Player) OpenAttempt(instanceID, gameID string, entryCost int) {
	p.OpenAttempts = append(p.OpenAttempts, OpenAttempt{InstanceID: instanceID, GameID: gameID, EntryCost: entryCost})
}

// CloseAttempt drops the open attempt for instanceID and returns it, with
// false when there was none.
func (p *Player) CloseAttempt(instanceID string) (OpenAttempt, bool) {
	for i, a := range p.OpenAttempts {
		if a.InstanceID == instanceID {
			p.OpenAttempts = append(p.OpenAttempts[:i], p.OpenAttempts[i+1:]...)
			return a, true
		}
	}
	return OpenAttempt{}, false
}

func (p *Player) HasOpenAttempt(instanceID string) bool {
	for _, a := range p.OpenAttempts {
		if a.InstanceID == instanceID {
			return true
		}
	}
	return false
}

// Attempts counts settled attempts and wins on gameID, plus attempts still in play.
func (p *Player) Attempts(gameID string) (settled, wins, open int) {
	for _, h := range p.GameHistory {
		if h.GameID != gameID {
			continue
		}
		settled++
		if h.Result == ResultWin {
			wins++
		}
	}
	for _, a := range p.OpenAttempts {
		if a.GameID == gameID {
			open++
		}
	}
	return settled, wins, open
}

type Eligibility int

const (
	Eligible Eligibility = iota
	AttemptCapReached
	AlreadyWon
	AttemptInProgress
	InsufficientTokens
)

// Eligibility decides whether the player may start gameID at entryCost.
// Only a recorded loss grants a second try.
func (p *Player) Eligibility(gameID string, entryCost int) Eligibility {
	settled, wins, open := p.Attempts(gameID)

	switch {
	case settled+open >= MaxAttempts:
		return AttemptCapReached
	case wins > 0:
		return AlreadyWon
	case open > 0:
		return AttemptInProgress
	case p.Tokens < entryCost:
		return InsufficientTokens
	}
	return Eligible
}

// Reset restores creation defaults, keeping identity and registration time.
func (p *Player) Reset(startingTokens int) {
	p.Tokens = startingTokens
	p.Points = 0
	p.GamesPlayed = 0
	p.OpponentsFaced = []string{}
	p.GameHistory = []GameHistory{}
	p.OpenAttempts = []OpenAttempt{}
}

func (p *Player) Clone() *Player {
	c := *p
	c.OpponentsFaced = append([]string{}, p.OpponentsFaced...)
	c.GameHistory = append([]GameHistory{}, p.GameHistory...)
	c.OpenAttempts = append([]OpenAttempt{}, p.OpenAttempts...)
	return &c
}

// LeaderboardEntry is the public ranked projection of a player.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	Points      int    `json:"points"`
	Tokens      int    `json:"tokens"`
	GamesPlayed int    `json:"gamesPlayed"`
}
