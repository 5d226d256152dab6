package auth

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	pkgAuth "github.com/forgecraft/craftvault-backend/pkg/auth"
	"github.com/forgecraft/craftvault-backend/pkg/auth/session"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "craftvault-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{}
}

type stubPlayerRepo struct {
	player     *models.Player
	lastLogins []int64
}

func (s *stubPlayerRepo) FindByNick(ctx context.Context, nick string) (*models.Player, error) {
	if s.player == nil || s.player.MinecraftNick != nick {
		return nil, gorm.ErrRecordNotFound
	}
	return s.player, nil
}

func (s *stubPlayerRepo) UpdateLastLogin(ctx context.Context, playerID int64) error {
	s.lastLogins = append(s.lastLogins, playerID)
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := session.NewAccessID()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubLimiter struct {
	allowed bool
	scopes  []string
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, 1, nil
}

func seedPlayer(t *testing.T, nick, password string) *models.Player {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &models.Player{
		ID:            7,
		MinecraftNick: nick,
		PasswordHash:  hash,
		Role:          enums.RolePlayer,
		GameBalance:   150,
	}
}

func newAuthService(t *testing.T, repo *stubPlayerRepo, sess *stubSessionManager, limiter rateLimiter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		PlayerRepo:     repo,
		SessionManager: sess,
		RateLimiter:    limiter,
		JWTConfig:      testJWTConfig(),
		Now:            func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	repo := &stubPlayerRepo{player: seedPlayer(t, "Steve", "hunter42")}
	sess := &stubSessionManager{}
	svc := newAuthService(t, repo, sess, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{Nick: "Steve", Password: "hunter42"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.PlayerID != 7 || claims.Nick != "Steve" || claims.Role != enums.RolePlayer {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if len(sess.generated) != 1 || claims.ID != sess.generated[0] {
		t.Error("refresh session not keyed by the token jti")
	}
	if resp.RefreshToken == "" {
		t.Error("missing refresh token")
	}
	if len(repo.lastLogins) != 1 {
		t.Error("last login not recorded")
	}
	if resp.Player.MinecraftNick != "Steve" || resp.Player.GameBalance != 150 {
		t.Errorf("unexpected player summary: %+v", resp.Player)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := &stubPlayerRepo{player: seedPlayer(t, "Steve", "hunter42")}
	svc := newAuthService(t, repo, &stubSessionManager{}, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Nick: "Steve", Password: "wrong"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
	if len(repo.lastLogins) != 0 {
		t.Error("failed login must not record a last login")
	}
}

func TestLoginRejectsUnknownNickWithSameError(t *testing.T) {
	repo := &stubPlayerRepo{player: seedPlayer(t, "Steve", "hunter42")}
	svc := newAuthService(t, repo, &stubSessionManager{}, nil)

	_, wrongPass := svc.Login(context.Background(), LoginRequest{Nick: "Steve", Password: "wrong"})
	_, unknown := svc.Login(context.Background(), LoginRequest{Nick: "Herobrine", Password: "wrong"})
	if wrongPass.Error() != unknown.Error() {
		t.Errorf("credential errors must be indistinguishable: %q vs %q", wrongPass, unknown)
	}
}

func TestLoginRateLimited(t *testing.T) {
	repo := &stubPlayerRepo{player: seedPlayer(t, "Steve", "hunter42")}
	limiter := &stubLimiter{allowed: false}
	svc := newAuthService(t, repo, &stubSessionManager{}, limiter)

	_, err := svc.Login(context.Background(), LoginRequest{Nick: "Steve", Password: "hunter42"})
	expectCode(t, err, pkgerrors.CodeRateLimit)
	if len(limiter.scopes) != 1 || limiter.scopes[0] != "login:steve" {
		t.Errorf("unexpected limiter scope: %v", limiter.scopes)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	repo := &stubPlayerRepo{player: seedPlayer(t, "Steve", "hunter42")}
	sess := &stubSessionManager{}
	svc := newAuthService(t, repo, sess, nil)

	login, err := svc.Login(context.Background(), LoginRequest{Nick: "Steve", Password: "hunter42"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("rotated token does not parse: %v", err)
	}
	if claims.PlayerID != 7 || claims.Nick != "Steve" {
		t.Errorf("identity lost in rotation: %+v", claims)
	}
	oldClaims, _ := pkgAuth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	if claims.ID == oldClaims.ID {
		t.Error("rotation must issue a new jti")
	}
}

func TestRefreshRejectsInvalidRefreshToken(t *testing.T) {
	repo := &stubPlayerRepo{player: seedPlayer(t, "Steve", "hunter42")}
	sess := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	svc := newAuthService(t, repo, sess, nil)

	login, err := svc.Login(context.Background(), LoginRequest{Nick: "Steve", Password: "hunter42"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "forged",
	})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRejectsMangledAccessToken(t *testing.T) {
	svc := newAuthService(t, &stubPlayerRepo{}, &stubSessionManager{}, nil)

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "whatever",
	})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	sess := &stubSessionManager{}
	svc := newAuthService(t, &stubPlayerRepo{}, sess, nil)

	if err := svc.Logout(context.Background(), "access-123"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sess.revoked) != 1 || sess.revoked[0] != "access-123" {
		t.Errorf("unexpected revocations: %v", sess.revoked)
	}

	err := svc.Logout(context.Background(), "  ")
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}
