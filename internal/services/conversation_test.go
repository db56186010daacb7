package services

import (
	"sync"
	"testing"

	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPairKey_Normalized(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.Equal(t, "a:b", PairKey("b", "a"))
}

func TestResolveConversation_CreatesOnce(t *testing.T) {
	setupTestDB()
	createTestUser("alice_rc")
	createTestUser("bob_rc")

	first, err := ResolveConversation("alice_rc", "bob_rc")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationTypePrivate, first.Type)

	// Same pair in either order resolves to the same conversation
	second, err := ResolveConversation("bob_rc", "alice_rc")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var convCount, partCount int64
	database.DB.Model(&models.Conversation{}).Count(&convCount)
	database.DB.Model(&models.ConversationParticipant{}).Count(&partCount)
	assert.Equal(t, int64(1), convCount)
	assert.Equal(t, int64(2), partCount)
}

func TestResolveConversation_InvalidPairs(t *testing.T) {
	setupTestDB()
	createTestUser("alice_iv")

	_, err := ResolveConversation("alice_iv", "alice_iv")
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	_, err = ResolveConversation("alice_iv", "")
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	// Receiver unknown upstream
	_, err = ResolveConversation("alice_iv", "nobody_iv")
	assert.ErrorIs(t, err, ErrInvalidParticipant)
}

func TestResolveConversation_ConcurrentCallsSingleSurvivor(t *testing.T) {
	setupTestDB()
	createTestUser("alice_cc")
	createTestUser("bob_cc")

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conv, err := ResolveConversation("alice_cc", "bob_cc")
			if assert.NoError(t, err) {
				ids[n] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	database.DB.Model(&models.Conversation{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResolveConversation_DuplicatePairKeyRejected(t *testing.T) {
	setupTestDB()
	createTestUser("alice_dk")
	createTestUser("bob_dk")

	_, err := ResolveConversation("alice_dk", "bob_dk")
	require.NoError(t, err)

	// Inserting the same pair directly trips the uniqueness constraint the
	// resolver's retry loop relies on
	dup := models.Conversation{
		Type:    models.ConversationTypePrivate,
		PairKey: PairKey("alice_dk", "bob_dk"),
	}
	err = database.DB.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
