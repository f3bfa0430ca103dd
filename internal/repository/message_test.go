package repository

import (
	"context"
	"testing"

	"pulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_Listing(t *testing.T) {
	db, fx, pub := setupDB(t)
	repo := NewMessageRepository(db, pub)
	ctx := context.Background()

	alice := fx.Profile("alice")
	bob := fx.Profile("bob")
	carol := fx.Profile("carol")

	m1 := fx.Message(alice, bob, "hi bob")
	m2 := fx.Message(bob, alice, "hi alice")
	m3 := fx.Message(carol, alice, "hey")
	fx.Message(bob, carol, "unrelated")

	involving, err := repo.ListInvolving(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, involving, 3)
	assert.Equal(t, []string{m3.ID, m2.ID, m1.ID}, []string{involving[0].ID, involving[1].ID, involving[2].ID})

	between, err := repo.ListBetween(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, m1.ID, between[0].ID)
	assert.Equal(t, m2.ID, between[1].ID)
}

func TestMessageRepository_MarkReadOnlyOneDirection(t *testing.T) {
	db, fx, pub := setupDB(t)
	repo := NewMessageRepository(db, pub)
	ctx := context.Background()

	alice := fx.Profile("alice")
	bob := fx.Profile("bob")

	toAlice := fx.Message(bob, alice, "for alice")
	toBob := fx.Message(alice, bob, "for bob")

	n, err := repo.MarkRead(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got models.Message
	require.NoError(t, db.First(&got, "id = ?", toAlice.ID).Error)
	assert.True(t, got.IsRead)
	var other models.Message
	require.NoError(t, db.First(&other, "id = ?", toBob.ID).Error)
	assert.False(t, other.IsRead)

	n, err = repo.MarkRead(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	changes := pub.all()
	require.Len(t, changes, 1)
	assert.Equal(t, models.Change{
		Entity: models.EntityMessages,
		Op:     models.OpUpdate,
		Fields: map[string]string{"sender_id": bob.ID, "receiver_id": alice.ID},
	}, changes[0])
}

func TestMessageRepository_Create(t *testing.T) {
	db, fx, pub := setupDB(t)
	repo := NewMessageRepository(db, pub)

	alice := fx.Profile("alice")
	bob := fx.Profile("bob")

	msg := &models.Message{SenderID: alice.ID, ReceiverID: bob.ID, Content: "hello"}
	require.NoError(t, repo.Create(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.IsRead)
	require.Len(t, pub.all(), 1)
}
