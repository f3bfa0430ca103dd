package seed

import (
	"context"
	"testing"

	"pulse/internal/models"
	"pulse/internal/testutil"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_CreateProfilesAreDistinct(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := NewFactory(db, gofakeit.New(42))

	profiles, err := f.CreateProfiles(10)
	require.NoError(t, err)
	require.Len(t, profiles, 10)

	seen := map[string]bool{}
	for _, p := range profiles {
		assert.NotEmpty(t, p.ID)
		assert.False(t, seen[p.Username], "duplicate username %s", p.Username)
		seen[p.Username] = true
	}

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	assert.Equal(t, int64(10), count)
}

func TestFactory_BuildPostOverrides(t *testing.T) {
	f := NewFactory(nil, gofakeit.New(7))
	author := &models.Profile{ID: "author"}

	post := f.BuildPost(author, 3, func(p *models.Post) { p.Content = "fixed" })

	assert.Equal(t, "author", post.UserID)
	assert.Equal(t, "fixed", post.Content)
	assert.False(t, post.CreatedAt.IsZero())
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s := NewSeeder(db, nil, 99)

	opts := Options{
		Profiles:    6,
		Posts:       12,
		MaxLikes:    4,
		MaxComments: 3,
		MaxFollows:  3,
		Messages:    5,
		MaxDays:     7,
		ShouldClean: true,
	}
	sum, err := s.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Profiles)
	assert.Equal(t, 12, sum.Posts)
	assert.Equal(t, 5, sum.Messages)

	count := func(model interface{}) int {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return int(n)
	}
	assert.Equal(t, sum.Likes, count(&models.Like{}))
	assert.Equal(t, sum.Comments, count(&models.Comment{}))
	assert.Equal(t, sum.Follows, count(&models.Follow{}))
	assert.Equal(t, sum.Messages, count(&models.Message{}))
	assert.LessOrEqual(t, int(sum.Notifications), sum.Likes+sum.Comments+sum.Follows)

	// Running again with ShouldClean starts over.
	sum2, err := s.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 6, count(&models.Profile{}))
	assert.Equal(t, sum2.Likes, count(&models.Like{}))
}

func TestSeeder_NeedsTwoProfiles(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	_, err := NewSeeder(db, nil, 1).Run(context.Background(), Options{Profiles: 1, Posts: 1})
	assert.Error(t, err)
}
