package store

import (
	"testing"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestVersionFilterMatchesUnversionedPlayers(t *testing.T) {
	// a player stored before versioning decodes at version 0
	raw, err := bson.Marshal(bson.M{"playerId": "ARX001", "name": "A", "tokens": 10})
	require.NoError(t, err)
	var p models.Player
	require.NoError(t, bson.Unmarshal(raw, &p))
	require.Zero(t, p.Version)

	assert.Equal(t, bson.M{
		"playerId": "ARX001",
		"$or": bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		},
	}, versionFilter(p.PlayerID, p.Version))
}

func TestVersionFilterPinsVersion(t *testing.T) {
	assert.Equal(t, bson.M{"playerId": "ARX001", "version": int64(3)}, versionFilter("ARX001", 3))
}
