package shop

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	"github.com/forgecraft/craftvault-backend/pkg/pagination"
)

func setupShopTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE players (
  id INTEGER PRIMARY KEY,
  minecraft_nick TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'player',
  game_balance INTEGER NOT NULL DEFAULT 0,
  donate_balance INTEGER NOT NULL DEFAULT 0,
  referrer_nick TEXT,
  messages_count INTEGER NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT,
  kind TEXT NOT NULL,
  category TEXT,
  items_data TEXT,
  subscription_days INTEGER,
  game_price INTEGER,
  donate_price INTEGER,
  max_purchases_per_player INTEGER,
  execution_config TEXT,
  auto_execute INTEGER NOT NULL DEFAULT 1,
  requires_manual_approval INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE discounts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  player_id INTEGER NOT NULL UNIQUE,
  referrals_count INTEGER NOT NULL DEFAULT 0,
  discount_percent INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE purchases (
  id TEXT PRIMARY KEY,
  player_id INTEGER NOT NULL,
  minecraft_nick TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  currency TEXT NOT NULL,
  amount_paid INTEGER NOT NULL,
  applied_discount_percent INTEGER NOT NULL DEFAULT 0,
  promocode_id INTEGER,
  status TEXT NOT NULL DEFAULT 'completed',
  purchased_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE purchase_limits (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  player_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  purchases_made INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (player_id, product_id)
)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedPlayer(t *testing.T, db *gorm.DB, id int64, nick string, game, donate int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Player{
		ID:            id,
		MinecraftNick: nick,
		PasswordHash:  "x",
		GameBalance:   game,
		DonateBalance: donate,
	}).Error)
}

func TestDebitBalanceGuarded(t *testing.T) {
	db := setupShopTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedPlayer(t, db, 1, "Steve", 150, 5)

	ok, err := repo.DebitBalance(ctx, 1, enums.CurrencyGame, 90)
	require.NoError(t, err)
	assert.True(t, ok)

	var player models.Player
	require.NoError(t, db.First(&player, "id = ?", 1).Error)
	assert.Equal(t, int64(60), player.GameBalance)
	assert.Equal(t, int64(5), player.DonateBalance)

	// Guard refuses a debit that would go negative and leaves the row alone.
	ok, err = repo.DebitBalance(ctx, 1, enums.CurrencyGame, 61)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.First(&player, "id = ?", 1).Error)
	assert.Equal(t, int64(60), player.GameBalance)

	// Exact balance is spendable down to zero.
	ok, err = repo.DebitBalance(ctx, 1, enums.CurrencyGame, 60)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, db.First(&player, "id = ?", 1).Error)
	assert.Equal(t, int64(0), player.GameBalance)
}

func TestDebitBalancePerCurrencyColumn(t *testing.T) {
	db := setupShopTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedPlayer(t, db, 2, "Alex", 100, 100)

	ok, err := repo.DebitBalance(ctx, 2, enums.CurrencyDonate, 40)
	require.NoError(t, err)
	assert.True(t, ok)

	var player models.Player
	require.NoError(t, db.First(&player, "id = ?", 2).Error)
	assert.Equal(t, int64(100), player.GameBalance)
	assert.Equal(t, int64(60), player.DonateBalance)
}

func TestIncrementPurchaseLimitUpserts(t *testing.T) {
	db := setupShopTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.IncrementPurchaseLimit(ctx, 1, 7, 1))
	require.NoError(t, repo.IncrementPurchaseLimit(ctx, 1, 7, 2))
	require.NoError(t, repo.IncrementPurchaseLimit(ctx, 1, 8, 1))

	made, err := repo.PurchasesMade(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, made)

	made, err = repo.PurchasesMade(ctx, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, made)

	made, err = repo.PurchasesMade(ctx, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, made)
}

func TestReferralDiscountPercentMissingRow(t *testing.T) {
	db := setupShopTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	percent, err := repo.ReferralDiscountPercent(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 0, percent)

	require.NoError(t, db.Create(&models.Discount{PlayerID: 99, ReferralsCount: 5, DiscountPercent: 10}).Error)

	percent, err = repo.ReferralDiscountPercent(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 10, percent)
}

func TestFindActiveProductSkipsInactive(t *testing.T) {
	db := setupShopTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	price := int64(100)
	product := models.Product{Name: "VIP", Kind: enums.KindRank, GamePrice: &price, IsActive: true}
	require.NoError(t, db.Create(&product).Error)

	found, err := repo.FindActiveProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "VIP", found.Name)

	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("is_active", false).Error)

	_, err = repo.FindActiveProduct(ctx, product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Pending deliveries keep resolving the product after deactivation.
	still, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "VIP", still.Name)
}

func TestListPurchasesPaginates(t *testing.T) {
	db := setupShopTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.Purchase{
			ID:            uuid.New(),
			PlayerID:      1,
			MinecraftNick: "Steve",
			ProductID:     7,
			ProductName:   "Kit",
			Quantity:      1,
			Currency:      enums.CurrencyGame,
			AmountPaid:    10,
			Status:        enums.PurchaseCompleted,
			PurchasedAt:   base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
	// Another player's rows must never leak into the page.
	require.NoError(t, db.Create(&models.Purchase{
		ID:            uuid.New(),
		PlayerID:      2,
		MinecraftNick: "Alex",
		ProductID:     7,
		ProductName:   "Kit",
		Quantity:      1,
		Currency:      enums.CurrencyGame,
		AmountPaid:    10,
		Status:        enums.PurchaseCompleted,
		PurchasedAt:   base.Add(time.Hour),
	}).Error)

	page, err := repo.ListPurchases(ctx, 1, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Purchases, 3)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Purchases[0].PurchasedAt.After(page.Purchases[2].PurchasedAt))

	rest, err := repo.ListPurchases(ctx, 1, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Purchases, 2)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(page.Purchases, rest.Purchases...) {
		assert.Equal(t, int64(1), p.PlayerID)
		assert.False(t, seen[p.ID], "purchase %s returned twice", p.ID)
		seen[p.ID] = true
	}
}

func TestStatsAggregates(t *testing.T) {
	db := setupShopTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rows := []models.Purchase{
		{ID: uuid.New(), PlayerID: 1, MinecraftNick: "Steve", ProductID: 7, ProductName: "Kit", Quantity: 1, Currency: enums.CurrencyGame, AmountPaid: 90, Status: enums.PurchaseCompleted},
		{ID: uuid.New(), PlayerID: 1, MinecraftNick: "Steve", ProductID: 7, ProductName: "Kit", Quantity: 1, Currency: enums.CurrencyGame, AmountPaid: 100, Status: enums.PurchaseCompleted},
		{ID: uuid.New(), PlayerID: 2, MinecraftNick: "Alex", ProductID: 8, ProductName: "VIP", Quantity: 1, Currency: enums.CurrencyDonate, AmountPaid: 250, Status: enums.PurchaseCompleted},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalPurchases)
	assert.Equal(t, int64(190), stats.GameRevenue)
	assert.Equal(t, int64(250), stats.DonateRevenue)
	require.NotEmpty(t, stats.TopProducts)
	assert.Equal(t, int64(7), stats.TopProducts[0].ProductID)
	assert.Equal(t, int64(2), stats.TopProducts[0].Purchases)
}
