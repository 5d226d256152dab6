package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	authsvc "github.com/forgecraft/craftvault-backend/internal/auth"
	playersvc "github.com/forgecraft/craftvault-backend/internal/players"
	playtimesvc "github.com/forgecraft/craftvault-backend/internal/playtime"
	promosvc "github.com/forgecraft/craftvault-backend/internal/promocodes"
	"github.com/forgecraft/craftvault-backend/internal/rcon"
	serversvc "github.com/forgecraft/craftvault-backend/internal/server"
	shopsvc "github.com/forgecraft/craftvault-backend/internal/shop"
	transfersvc "github.com/forgecraft/craftvault-backend/internal/transfers"
	pkgAuth "github.com/forgecraft/craftvault-backend/pkg/auth"
	"github.com/forgecraft/craftvault-backend/pkg/auth/session"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return &authsvc.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (stubAuthService) Refresh(ctx context.Context, req authsvc.RefreshRequest) (*authsvc.RefreshResponse, error) {
	return &authsvc.RefreshResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error { return nil }

type stubPlayerService struct{}

func (stubPlayerService) Register(ctx context.Context, input playersvc.RegisterInput) (*models.Player, error) {
	return &models.Player{ID: input.PlayerID, MinecraftNick: input.Nick}, nil
}

func (stubPlayerService) Profile(ctx context.Context, playerID int64) (*playersvc.Profile, error) {
	return &playersvc.Profile{PlayerID: playerID}, nil
}

func (stubPlayerService) ConfirmReferral(ctx context.Context, referredPlayerID int64) error {
	return nil
}

func (stubPlayerService) IncrementMessages(ctx context.Context, playerID int64) error { return nil }

func (stubPlayerService) AccrueChatRewards(ctx context.Context) (*playersvc.ChatRewardStats, error) {
	return &playersvc.ChatRewardStats{}, nil
}

type stubShopService struct{}

func (stubShopService) ListProducts(ctx context.Context, category *string) ([]models.Product, error) {
	return nil, nil
}

func (stubShopService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return &models.Product{ID: id}, nil
}

func (stubShopService) Purchase(ctx context.Context, input shopsvc.PurchaseInput) (*shopsvc.PurchaseResult, error) {
	return &shopsvc.PurchaseResult{}, nil
}

func (stubShopService) History(ctx context.Context, playerID int64, params pagination.Params) (*shopsvc.PurchaseList, error) {
	return &shopsvc.PurchaseList{}, nil
}

func (stubShopService) PurchaseByID(ctx context.Context, playerID int64, id uuid.UUID) (*shopsvc.PurchaseDetail, error) {
	return &shopsvc.PurchaseDetail{}, nil
}

func (stubShopService) Stats(ctx context.Context) (*shopsvc.Stats, error) {
	return &shopsvc.Stats{}, nil
}

func (stubShopService) CreateProduct(ctx context.Context, input shopsvc.AdminProductInput) (*models.Product, error) {
	return &models.Product{}, nil
}

func (stubShopService) UpdateProduct(ctx context.Context, id int64, input shopsvc.AdminProductInput) (*models.Product, error) {
	return &models.Product{ID: id}, nil
}

func (stubShopService) DeleteProduct(ctx context.Context, id int64) error { return nil }

type stubPromoService struct{}

func (stubPromoService) Create(ctx context.Context, input promosvc.CreateInput) (*models.Promocode, error) {
	return &models.Promocode{}, nil
}

func (stubPromoService) List(ctx context.Context, input promosvc.ListInput) ([]models.Promocode, error) {
	return nil, nil
}

func (stubPromoService) Deactivate(ctx context.Context, id int64) error { return nil }

func (stubPromoService) Validate(ctx context.Context, code string, productID *int64) (*promosvc.ValidationResult, error) {
	return &promosvc.ValidationResult{Valid: true}, nil
}

type stubTransferService struct{}

func (stubTransferService) Send(ctx context.Context, input transfersvc.SendInput) (*transfersvc.SendResult, error) {
	return &transfersvc.SendResult{}, nil
}

func (stubTransferService) History(ctx context.Context, playerID int64, direction transfersvc.Direction, params pagination.Params) (*transfersvc.HistoryPage, error) {
	return &transfersvc.HistoryPage{}, nil
}

func (stubTransferService) Stats(ctx context.Context, playerID int64) (*transfersvc.Stats, error) {
	return &transfersvc.Stats{}, nil
}

func (stubTransferService) Commission(amount int64) (*transfersvc.Quote, error) {
	return &transfersvc.Quote{Amount: amount}, nil
}

type stubServerService struct{}

func (stubServerService) OnlinePlayers(ctx context.Context, serverID string) ([]rcon.OnlinePlayer, error) {
	return nil, nil
}

func (stubServerService) Broadcast(ctx context.Context, input serversvc.BroadcastInput) (*rcon.Result, error) {
	return &rcon.Result{}, nil
}

func (stubServerService) SetGamemode(ctx context.Context, input serversvc.GamemodeInput) (*rcon.Result, error) {
	return &rcon.Result{}, nil
}

func (stubServerService) PendingExecutions(ctx context.Context, limit int) ([]models.ProductExecution, error) {
	return nil, nil
}

func (stubServerService) ApproveExecution(ctx context.Context, adminID int64, id uuid.UUID) (*models.ProductExecution, error) {
	return &models.ProductExecution{}, nil
}

type stubPlaytimeService struct{}

func (stubPlaytimeService) AccrueRewards(ctx context.Context) (*playtimesvc.RewardRunStats, error) {
	return &playtimesvc.RewardRunStats{}, nil
}

func (stubPlaytimeService) Stats(ctx context.Context, playerID int64) (*playtimesvc.PlayerPlaytime, error) {
	return &playtimesvc.PlayerPlaytime{}, nil
}

func (stubPlaytimeService) Top(ctx context.Context, limit int) ([]playtimesvc.PlayerPlaytime, error) {
	return nil, nil
}

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	return NewRouter(
		testRouterConfig(),
		logg,
		stubPinger{},
		nil,
		stubSessionChecker{},
		stubAuthService{},
		stubPlayerService{},
		stubShopService{},
		stubPromoService{},
		stubTransferService{},
		stubServerService{},
		stubPlaytimeService{},
	)
}

func routerToken(t *testing.T, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testRouterConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		PlayerID: 42,
		Nick:     "Steve",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{
		"/api/v1/players/me",
		"/api/v1/shop/products",
		"/api/v1/transfers/stats",
		"/api/v1/rewards/top",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestPlayerTokenReachesShop(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shop/products", nil)
	req.Header.Set("Authorization", "Bearer "+routerToken(t, enums.RolePlayer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRejectPlayers(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/purchases/stats", nil)
	req.Header.Set("Authorization", "Bearer "+routerToken(t, enums.RolePlayer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminRoutesAllowAdmins(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/purchases/stats", nil)
	req.Header.Set("Authorization", "Bearer "+routerToken(t, enums.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginRouteDecodesBody(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"nick":"Steve","password":"hunter2secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "access") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
