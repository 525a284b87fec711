package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hedera-wallet/hedera_wallet/internal/command"
	"github.com/hedera-wallet/hedera_wallet/internal/config"
	"github.com/hedera-wallet/hedera_wallet/internal/facade"
	"github.com/hedera-wallet/hedera_wallet/internal/fees"
	"github.com/hedera-wallet/hedera_wallet/internal/host"
	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
	"github.com/hedera-wallet/hedera_wallet/internal/middleware"
	"github.com/hedera-wallet/hedera_wallet/internal/mirror"
	"github.com/hedera-wallet/hedera_wallet/internal/notification"
	"github.com/hedera-wallet/hedera_wallet/internal/swap"
	"github.com/hedera-wallet/hedera_wallet/internal/wallet"
)

// devKeystoreSecret seals keys when KEYSTORE_SECRET is unset in development.
const devKeystoreSecret = "6465762d6b657973746f72652d7365637265742d6e6f742d666f722d70726f64"

// Dev ledger account seeded when LEDGER_BACKEND=memory.
const (
	devAccountID  = "0.0.1001"
	devPrivateKey = "dev-private-key"
	devPublicKey  = "dev-public-key"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *zap.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// confirmations are answered through Redis; without it only the
	// in-memory ledger may approve on the user's behalf
	if d.Cache == nil && d.Cfg.LedgerBackend != config.BackendMemory {
		return fmt.Errorf("redis is required to confirm transactions with LEDGER_BACKEND=%s", d.Cfg.LedgerBackend)
	}
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	clients, mirrors, err := ledgerBackends(d)
	if err != nil {
		return err
	}

	var walletRepo wallet.Repository
	var swapRepo swap.Repository
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		swapRepo = swap.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
		swapRepo = swap.NewMemoryRepository()
	}
	secret := d.Cfg.KeystoreSecret
	if secret == "" {
		d.Logger.Warn("KEYSTORE_SECRET not set, sealing keys with the development secret")
		secret = devKeystoreSecret
	}
	sealer, err := wallet.NewSealer(secret)
	if err != nil {
		return err
	}
	walletSvc := wallet.NewService(walletRepo, sealer, d.Logger)

	notifiers := notification.Multi{notification.NewLoggerNotifier(d.Logger)}
	var dialog host.Dialog = host.AutoApprove
	var redisDialog *host.RedisDialog
	if d.Cache != nil {
		notifiers = append(notifiers, notification.NewRedisNotifier(d.Cache))
		redisDialog = host.NewRedisDialog(d.Cache, d.Cfg.ConfirmationTimeout, d.Logger)
		dialog = redisDialog
	} else {
		d.Logger.Warn("redis not configured, in-memory ledger confirmations are approved automatically")
	}

	fee := fees.ServiceFee{Percentage: d.Cfg.ServiceFeePercentage, Collector: d.Cfg.ServiceFeeCollector}
	executor := command.NewExecutor(d.Logger)
	facadeSvc := facade.NewService(facade.Deps{
		Clients:       clients,
		Mirrors:       mirrors,
		Wallets:       walletSvc,
		Dialog:        dialog,
		Notifier:      notifiers,
		Executor:      executor,
		Swaps:         swap.NewScheduler(swapRepo, executor, fee, d.Cfg.SwapLifetime, d.Logger),
		Fee:           fee,
		BalanceMaxAge: d.Cfg.BalanceMaxAge,
		Logger:        d.Logger,
	})

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var authmw fiber.Handler
	if d.Cfg.JWTSecret != "" {
		authmw = middleware.OriginAuth([]byte(d.Cfg.JWTSecret))
	} else {
		d.Logger.Warn("JWT_SECRET not set, trusting the X-Origin header")
		authmw = middleware.DevOrigin()
	}
	protected := api.Group("", authmw, middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, d.Logger))

	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc, middleware.Origin))
	rpcHandler := facade.NewHandler(facadeSvc, middleware.Origin, d.Cfg.Network)
	if d.Cache != nil {
		RegisterRPCRoutes(protected, rpcHandler, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	} else {
		RegisterRPCRoutes(protected, rpcHandler)
	}
	if redisDialog != nil {
		RegisterConfirmationRoutes(protected, host.NewHandler(redisDialog, middleware.Origin))
	}
	return nil
}

// ledgerBackends builds the client factory and the mirror sources for the
// configured backend.
func ledgerBackends(d Deps) (ledger.ClientFactory, *mirror.Registry, error) {
	mirrors := mirror.NewRegistry()
	if d.Cfg.LedgerBackend == config.BackendMemory {
		mem := ledger.NewInMemory(d.Cfg.Network)
		mem.CreateAccount(devAccountID, ledger.Key{PrivateKey: devPrivateKey, Curve: ledger.CurveED25519}, devPublicKey, "", decimal.NewFromInt(10_000))
		if collector := d.Cfg.ServiceFeeCollector; collector != "" {
			mem.CreateAccount(collector, ledger.Key{}, "", "", decimal.Zero)
		}
		d.Logger.Info("in-memory ledger ready",
			zap.String("network", d.Cfg.Network),
			zap.String("account_id", devAccountID))
		mirrors.Register(d.Cfg.Network, mem)
		return mem, mirrors, nil
	}

	for _, network := range []string{"mainnet", "testnet", "previewnet"} {
		url := d.Cfg.MirrorURL
		if url == "" || network != d.Cfg.Network {
			var err error
			if url, err = mirror.DefaultURL(network); err != nil {
				return nil, nil, err
			}
		}
		client := mirror.NewClient(url, d.Logger)
		var src mirror.Source = client
		if d.Cache != nil {
			cached := mirror.NewCachedSource(client, d.Cache, network, d.Cfg.MetadataCacheTTL, d.Logger)
			client.UseTokenSource(cached)
			src = cached
		}
		mirrors.Register(network, src)
	}
	return ledger.NewHederaFactory(d.Logger), mirrors, nil
}
