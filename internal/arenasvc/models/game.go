package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GameType string

const (
	GameTypeSingle  GameType = "single"
	GameTypeFaceoff GameType = "faceoff"
)

func (t GameType) Valid() bool {
	return t == GameTypeSingle || t == GameTypeFaceoff
}

// RequiredPlayers is the exact number of players an instance of this type binds.
func (t GameType) RequiredPlayers() int {
	switch t {
	case GameTypeSingle:
		return 1
	case GameTypeFaceoff:
		return 2
	default:
		return 0
	}
}

type Status string

const (
	StatusPending   Status = "pending"   // unstarted template
	StatusActive    Status = "active"    // instance awaiting results
	StatusCompleted Status = "completed" // instance with recorded results
)

type PlayerResult struct {
	PlayerID string `bson:"playerId" json:"playerId"`
	Result   Result `bson:"result" json:"result"`
}

// Game is both a catalogue template and a played instance, told apart by Status.
// GameID is not unique: every start inserts a new row with the same GameID.
type Game struct {
	ID              primitive.ObjectID `bson:"_id" json:"_id"`
	GameID          string             `bson:"gameId" json:"gameId"`
	GameName        string             `bson:"gameName" json:"gameName"`
	Description     string             `bson:"description" json:"description"`
	EntryCost       int                `bson:"entryCost" json:"entryCost"`
	MaxPoints       int                `bson:"maxPoints" json:"maxPoints"`
	Type            GameType           `bson:"type" json:"type"`
	Status          Status             `bson:"status" json:"status"`
	PlayersInvolved []string           `bson:"playersInvolved" json:"playersInvolved"`
	Results         []PlayerResult     `bson:"results" json:"results"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
}

// NormalizeGameID upper-cases and trims a human-assigned game code.
func NormalizeGameID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func NewTemplate(gameID, name, description string, entryCost, maxPoints int, t GameType, now time.Time) *Game {
	return &Game{
		ID:              primitive.NewObjectID(),
		GameID:          NormalizeGameID(gameID),
		GameName:        strings.TrimSpace(name),
		Description:     strings.TrimSpace(description),
		EntryCost:       entryCost,
		MaxPoints:       maxPoints,
		Type:            t,
		Status:          StatusPending,
		PlayersInvolved: []string{},
		Results:         []PlayerResult{},
		Timestamp:       now,
	}
}

// Spawn copies the rules of g into a fresh active instance bound to playerIDs.
// g itself is not modified.
func (g *Game) Spawn(playerIDs []string, now time.Time) *Game {
	return &Game{
		ID:              primitive.NewObjectID(),
		GameID:          g.GameID,
		GameName:        g.GameName,
		Description:     g.Description,
		EntryCost:       g.EntryCost,
		MaxPoints:       g.MaxPoints,
		Type:            g.Type,
		Status:          StatusActive,
		PlayersInvolved: append([]string{}, playerIDs...),
		Results:         []PlayerResult{},
		Timestamp:       now,
	}
}

// Branch copies the rules of g into a new pending template row. Edits to an
// active instance go to the branch so the instance keeps the rules it was started with.
func (g *Game) Branch(now time.Time) *Game {
	b := g.Spawn(nil, now)
	b.Status = StatusPending
	return b
}

// TemplateView is the catalogue projection of a row: pending, with no players or results.
func (g *Game) TemplateView() *Game {
	v := g.Clone()
	v.Status = StatusPending
	v.PlayersInvolved = []string{}
	v.Results = []PlayerResult{}
	return v
}

// Opponents returns everyone in the instance except playerID.
func (g *Game) Opponents(playerID string) []string {
	var out []string
	for _, id := range g.PlayersInvolved {
		if id != playerID {
			out = append(out, id)
		}
	}
	return out
}

// PointsFor is what a result is worth on this instance.
func (g *Game) PointsFor(r Result) int {
	if r == ResultWin {
		return g.MaxPoints
	}
	return 0
}

func (g *Game) Clone() *Game {
	c := *g
	c.PlayersInvolved = append([]string{}, g.PlayersInvolved...)
	c.Results = append([]PlayerResult{}, g.Results...)
	return &c
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalPlayers   int64 `json:"totalPlayers"`
	TotalGames     int64 `json:"totalGames"`
	ActiveGames    int64 `json:"activeGames"`
	CompletedGames int64 `json:"completedGames"`
	TotalPoints    int64 `json:"totalPoints"`
}
