package service

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"postboard/internal/auth"
	"postboard/internal/domain"
	"postboard/internal/repository/memory"
)

type testEnv struct {
	users   UserService
	posts   PostService
	auth    AuthService
	tokens  *auth.TokenService
	revoker *auth.MemoryRevoker
	userRep *memory.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	userRepo := memory.NewUserRepository()
	tokens := auth.NewTokenService("test-secret", "postboard", time.Minute)
	revoker := auth.NewMemoryRevoker()
	users := NewUserService(userRepo, auth.NewPasswordHasher(bcrypt.MinCost))
	return &testEnv{
		users:   users,
		posts:   NewPostService(memory.NewPostRepository()),
		auth:    NewAuthService(users, tokens, revoker),
		tokens:  tokens,
		revoker: revoker,
		userRep: userRepo,
	}
}

func (e *testEnv) register(t *testing.T, disabled bool) (*domain.User, string) {
	t.Helper()
	password := gofakeit.Password(true, true, true, false, false, 14)
	user, err := e.users.Register(context.Background(), RegisterInput{
		Username: gofakeit.Username() + gofakeit.DigitN(5),
		Email:    gofakeit.DigitN(5) + gofakeit.Email(),
		Disabled: disabled,
		Password: password,
	})
	require.NoError(t, err)
	return user, password
}

func randomPost(public bool) PostInput {
	return PostInput{
		Title:   "Title " + gofakeit.UUID(),
		Content: "Content " + gofakeit.Sentence(8),
		Public:  public,
	}
}
