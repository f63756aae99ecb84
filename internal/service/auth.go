package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/lending-service/internal/errs"
	"github.com/openshelf/lending-service/internal/model"
	"github.com/openshelf/lending-service/internal/repository"
	"github.com/openshelf/lending-service/pkg/auth"
)

// AuthService owns the token lifecycle: password auth, access token
// issue/verify and refresh token rotation.
type AuthService struct {
	log  *zap.Logger
	repo repository.Repository
	cfg  auth.Config
}

func NewAuthService(repo repository.Repository, cfg auth.Config, log *zap.Logger) *AuthService {
	return &AuthService{
		log:  log,
		repo: repo,
		cfg:  cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, errors.Wrap(err, "bcrypt")
	}
	return s.repo.CreateUser(ctx, req.Email, string(hash), model.RoleMember)
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.TokenPair{}, errs.ErrInvalidCredentials
		}
		return model.TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.TokenPair{}, errs.ErrInvalidCredentials
	}
	return s.Issue(ctx, user)
}

// Issue signs a short-lived access token carrying user id and role and
// a refresh token whose rotation state is stored server-side by jti.
func (s *AuthService) Issue(ctx context.Context, user model.User) (model.TokenPair, error) {
	now := time.Now()

	accessClaims := &auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return model.TokenPair{}, errors.Wrap(err, "sign access token")
	}

	jti := uuid.NewString()
	refreshExpiry := now.Add(s.cfg.RefreshTTL)
	refreshClaims := &auth.RefreshClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return model.TokenPair{}, errors.Wrap(err, "sign refresh token")
	}

	if err := s.repo.StoreRefreshToken(ctx, model.RefreshToken{
		JTI:       jti,
		UserID:    user.ID,
		TokenHash: tokenHash(refreshToken),
		ExpiresAt: refreshExpiry,
	}); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// Refresh rotates the presented refresh token. A token that is expired,
// unknown or already rotated fails with ErrInvalidToken; of two
// concurrent refreshes with the same token only one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	userID, err := s.repo.ConsumeRefreshToken(ctx, claims.ID, tokenHash(refreshToken))
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return model.TokenPair{}, err
	}
	return s.Issue(ctx, user)
}

// Verify validates an access token and returns its claims.
func (s *AuthService) Verify(_ context.Context, accessToken string) (*auth.Claims, error) {
	claims := new(auth.Claims)
	token, err := jwt.ParseWithClaims(accessToken, claims, s.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, errs.ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errs.ErrInvalidSignature
		default:
			return nil, errs.ErrInvalidToken
		}
	}
	if !token.Valid {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the refresh chain of one session.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	return s.repo.RevokeRefreshToken(ctx, claims.ID)
}

// LogoutAll revokes every live refresh token of a user, ending all
// of their sessions at once.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	return s.repo.RevokeUserTokens(ctx, userID)
}

func (s *AuthService) parseRefreshToken(refreshToken string) (*auth.RefreshClaims, error) {
	claims := new(auth.RefreshClaims)
	token, err := jwt.ParseWithClaims(refreshToken, claims, s.keyFunc)
	if err != nil || !token.Valid || claims.ID == "" {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return []byte(s.cfg.Secret), nil
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
