package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/internal/model"
	"github.com/openshelf/lending-service/internal/repository"
	"github.com/openshelf/lending-service/internal/service"
	"github.com/openshelf/lending-service/pkg/auth"
)

// fakeRepo implements the user and token persistence with the same
// compare-and-set rotation semantics as the postgres repository.
type fakeRepo struct {
	repository.Repository

	mu     sync.Mutex
	users  map[int64]model.User
	tokens map[string]model.RefreshToken
}

func newFakeRepo(users ...model.User) *fakeRepo {
	r := &fakeRepo{
		users:  make(map[int64]model.User),
		tokens: make(map[string]model.RefreshToken),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) GetUser(_ context.Context, id int64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return user, nil
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, errs.ErrNotFound
}

func (r *fakeRepo) StoreRefreshToken(_ context.Context, token model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.JTI] = token
	return nil
}

func (r *fakeRepo) ConsumeRefreshToken(_ context.Context, jti, tokenHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[jti]
	if !ok || token.Revoked || token.TokenHash != tokenHash || time.Now().After(token.ExpiresAt) {
		return 0, errs.ErrInvalidToken
	}
	token.Revoked = true
	r.tokens[jti] = token
	return token.UserID, nil
}

func (r *fakeRepo) RevokeRefreshToken(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[jti]
	if !ok || token.Revoked {
		return errs.ErrInvalidToken
	}
	token.Revoked = true
	r.tokens[jti] = token
	return nil
}

func (r *fakeRepo) RevokeUserTokens(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for jti, token := range r.tokens {
		if token.UserID == userID {
			token.Revoked = true
			r.tokens[jti] = token
		}
	}
	return nil
}

var testUser = model.User{
	ID:    42,
	Email: "reader@example.com",
	Role:  model.RoleMember,
}

func newAuthService(t *testing.T, cfg auth.Config, users ...model.User) (*service.AuthService, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo(users...)
	return service.NewAuthService(repo, cfg, zap.NewExample().Named("test")), repo
}

func testConfig() auth.Config {
	return auth.Config{
		Secret:     "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	}
}

func TestAuthService_IssueVerify(t *testing.T) {
	t.Parallel()
	svc, _ := newAuthService(t, testConfig(), testUser)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testUser.ID, claims.UserID)
	require.Equal(t, testUser.Role, claims.Role)
}

func TestAuthService_VerifyExpired(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.AccessTTL = -time.Minute
	svc, _ := newAuthService(t, cfg, testUser)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, errs.ErrExpiredToken)
}

func TestAuthService_VerifyBadSignature(t *testing.T) {
	t.Parallel()
	svc, _ := newAuthService(t, testConfig(), testUser)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.Secret = "another-secret"
	other, _ := newAuthService(t, otherCfg, testUser)

	_, err = other.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, errs.ErrInvalidSignature)

	_, err = svc.Verify(ctx, "not-a-token")
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	t.Parallel()
	svc, _ := newAuthService(t, testConfig(), testUser)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// the consumed token is gone for good
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, errs.ErrInvalidToken)

	// the rotated-in token still works
	_, err = svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_RefreshConcurrent(t *testing.T) {
	t.Parallel()
	svc, _ := newAuthService(t, testConfig(), testUser)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)

	const attempts = 8
	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, pair.RefreshToken)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	success := 0
	for err := range errCh {
		if err == nil {
			success++
		} else {
			require.ErrorIs(t, err, errs.ErrInvalidToken)
		}
	}
	require.Equal(t, 1, success)
}

func TestAuthService_RefreshGarbage(t *testing.T) {
	t.Parallel()
	svc, _ := newAuthService(t, testConfig(), testUser)

	_, err := svc.Refresh(context.Background(), "garbage")
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, repo := newAuthService(t, testConfig())

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := testUser
	user.PasswordHash = string(hash)
	repo.users[user.ID] = user

	pair, err := svc.Login(ctx, model.LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	_, err = svc.Login(ctx, model.LoginRequest{Email: user.Email, Password: "wrong"})
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestAuthService_LogoutAll(t *testing.T) {
	t.Parallel()
	svc, _ := newAuthService(t, testConfig(), testUser)
	ctx := context.Background()

	first, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, testUser.ID))

	// every outstanding session is dead
	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
	_, err = svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()
	svc, _ := newAuthService(t, testConfig(), testUser)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, testUser)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}
