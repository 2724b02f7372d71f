package database

import (
	"testing"

	modelspkg "agora/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesViewLedger(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*modelspkg.PostViewLog); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include PostViewLog")
}
