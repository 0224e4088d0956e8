// Package repotest holds behaviour checks shared by every repository backend.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

func newUser() *domain.User {
	name := gofakeit.Name()
	return &domain.User{
		Username:     gofakeit.Username() + gofakeit.DigitN(6),
		Email:        gofakeit.DigitN(6) + gofakeit.Email(),
		FullName:     &name,
		PasswordHash: "$2a$10$" + gofakeit.LetterN(53),
	}
}

func newPost(ownerID int64, public bool) *domain.Post {
	return &domain.Post{
		OwnerID: ownerID,
		Title:   gofakeit.Sentence(4) + " " + gofakeit.UUID(),
		Content: gofakeit.Sentence(12),
		Public:  public,
	}
}

// UserRepository exercises a freshly initialised, empty UserRepository.
func UserRepository(t *testing.T, repo repository.UserRepository) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		user := newUser()
		id, err := repo.Create(ctx, user)
		require.NoError(t, err)
		require.NotZero(t, id)
		assert.Equal(t, id, user.ID)
		assert.False(t, user.CreatedAt.IsZero())

		byName, err := repo.GetByUsername(ctx, user.Username)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)
		assert.Equal(t, user.Email, byName.Email)
		assert.Equal(t, user.PasswordHash, byName.PasswordHash)
		require.NotNil(t, byName.FullName)
		assert.Equal(t, *user.FullName, *byName.FullName)

		byEmail, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, byID.Username)
	})

	t.Run("disabled and nil full name survive storage", func(t *testing.T) {
		user := newUser()
		user.FullName = nil
		user.Disabled = true
		_, err := repo.Create(ctx, user)
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.Disabled)
		assert.Nil(t, stored.FullName)
	})

	t.Run("duplicate username", func(t *testing.T) {
		first := newUser()
		_, err := repo.Create(ctx, first)
		require.NoError(t, err)

		dup := newUser()
		dup.Username = first.Username
		_, err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("duplicate email", func(t *testing.T) {
		first := newUser()
		_, err := repo.Create(ctx, first)
		require.NoError(t, err)

		dup := newUser()
		dup.Email = first.Email
		_, err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "nobody-"+gofakeit.UUID())
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = repo.GetByEmail(ctx, gofakeit.UUID()+"@nowhere.test")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = repo.GetByID(ctx, 1<<40)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		before, err := repo.List(ctx)
		require.NoError(t, err)

		a, b := newUser(), newUser()
		_, err = repo.Create(ctx, a)
		require.NoError(t, err)
		_, err = repo.Create(ctx, b)
		require.NoError(t, err)

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, len(before)+2)
		assert.Equal(t, a.ID, users[len(users)-2].ID)
		assert.Equal(t, b.ID, users[len(users)-1].ID)
	})

	t.Run("concurrent duplicates admit exactly one", func(t *testing.T) {
		template := newUser()
		const workers = 8

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			created   int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u := *template
				_, err := repo.Create(ctx, &u)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					created++
					return
				}
				if assert.ErrorIs(t, err, repository.ErrConflict) {
					conflicts++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)
		assert.Equal(t, workers-1, conflicts)
	})
}

// PostRepository exercises a freshly initialised, empty PostRepository.
// ownerA and ownerB must be ids of existing users when the backend enforces
// foreign keys.
func PostRepository(t *testing.T, repo repository.PostRepository, ownerA, ownerB int64) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		post := newPost(ownerA, true)
		id, err := repo.Create(ctx, post)
		require.NoError(t, err)
		require.NotZero(t, id)
		assert.False(t, post.CreatedAt.IsZero())

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, post.Title, got.Title)
		assert.Equal(t, post.Content, got.Content)
		assert.Equal(t, post.Public, got.Public)
		assert.Equal(t, ownerA, got.OwnerID)
	})

	t.Run("duplicate title and content across owners", func(t *testing.T) {
		first := newPost(ownerA, true)
		_, err := repo.Create(ctx, first)
		require.NoError(t, err)

		dup := newPost(ownerB, false)
		dup.Title, dup.Content = first.Title, first.Content
		_, err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, repository.ErrConflict)

		sameTitle := newPost(ownerB, true)
		sameTitle.Title = first.Title
		_, err = repo.Create(ctx, sameTitle)
		assert.NoError(t, err)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(ctx, 1<<40)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list filters and pages", func(t *testing.T) {
		var public []int64
		for i := 0; i < 5; i++ {
			p := newPost(ownerB, true)
			_, err := repo.Create(ctx, p)
			require.NoError(t, err)
			public = append(public, p.ID)

			hidden := newPost(ownerB, false)
			_, err = repo.Create(ctx, hidden)
			require.NoError(t, err)
		}

		all, err := repo.List(ctx, repository.PostFilter{PublicOnly: true})
		require.NoError(t, err)
		for _, p := range all {
			assert.True(t, p.Public)
		}
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}

		owner := ownerB
		mine, err := repo.List(ctx, repository.PostFilter{OwnerID: &owner})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(mine), 10)
		for _, p := range mine {
			assert.Equal(t, ownerB, p.OwnerID)
		}

		page, err := repo.List(ctx, repository.PostFilter{PublicOnly: true, Offset: len(all) - 3, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, public[2], page[0].ID)
		assert.Equal(t, public[3], page[1].ID)

		past, err := repo.List(ctx, repository.PostFilter{PublicOnly: true, Offset: len(all) + 10})
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("update replaces mutable fields", func(t *testing.T) {
		post := newPost(ownerA, true)
		_, err := repo.Create(ctx, post)
		require.NoError(t, err)
		created := post.CreatedAt

		edit := &domain.Post{ID: post.ID, OwnerID: ownerB, Title: "edited " + gofakeit.UUID(), Content: "body", Public: false}
		require.NoError(t, repo.Update(ctx, edit))
		assert.Equal(t, ownerA, edit.OwnerID, "owner is immutable")

		got, err := repo.Get(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, edit.Title, got.Title)
		assert.Equal(t, "body", got.Content)
		assert.False(t, got.Public)
		assert.Equal(t, ownerA, got.OwnerID)
		assert.WithinDuration(t, created, got.CreatedAt, time.Second)

		// the old pair is free again
		again := newPost(ownerB, true)
		again.Title, again.Content = post.Title, post.Content
		_, err = repo.Create(ctx, again)
		assert.NoError(t, err)
	})

	t.Run("update to own pair and to a taken pair", func(t *testing.T) {
		a := newPost(ownerA, true)
		b := newPost(ownerA, true)
		_, err := repo.Create(ctx, a)
		require.NoError(t, err)
		_, err = repo.Create(ctx, b)
		require.NoError(t, err)

		flip := &domain.Post{ID: a.ID, Title: a.Title, Content: a.Content, Public: false}
		require.NoError(t, repo.Update(ctx, flip))

		clash := &domain.Post{ID: b.ID, Title: a.Title, Content: a.Content, Public: true}
		assert.ErrorIs(t, repo.Update(ctx, clash), repository.ErrConflict)

		missing := &domain.Post{ID: 1 << 40, Title: "x", Content: "y"}
		assert.ErrorIs(t, repo.Update(ctx, missing), repository.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		post := newPost(ownerA, true)
		_, err := repo.Create(ctx, post)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, post.ID))
		_, err = repo.Get(ctx, post.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, post.ID), repository.ErrNotFound)

		reuse := newPost(ownerB, true)
		reuse.Title, reuse.Content = post.Title, post.Content
		_, err = repo.Create(ctx, reuse)
		assert.NoError(t, err)
	})

	t.Run("concurrent duplicates admit exactly one", func(t *testing.T) {
		template := newPost(ownerA, true)
		const workers = 8

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p := *template
				if _, err := repo.Create(ctx, &p); err == nil {
					mu.Lock()
					created++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, repository.ErrConflict)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)
	})
}
