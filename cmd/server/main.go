package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tiktok_shop_v1/internal/config"
	"tiktok_shop_v1/internal/controller"
	"tiktok_shop_v1/internal/event"
	"tiktok_shop_v1/internal/integration"
	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/internal/router"
	"tiktok_shop_v1/internal/service"
	"tiktok_shop_v1/internal/task"
	"tiktok_shop_v1/pkg/database"
	"tiktok_shop_v1/pkg/tiktok"
	"tiktok_shop_v1/pkg/utils"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer logger.Sync()

	// 2. 初始化数据库
	db := initDatabase(cfg, logger)

	// 3. 初始化依赖
	deps := initDependencies(cfg, db, logger)
	defer deps.Bus.Close()

	// 4. 启动定时任务
	scheduler := initTasks(cfg, deps, logger)
	defer scheduler.Stop()

	// 5. 初始化路由并启动服务
	r := router.SetupRouter(logger, deps.Controllers)
	startServer(cfg, r, logger)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Adapters    *integration.Registry
	Bus         event.Bus
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Account  repository.AccountRepository
	Order    repository.OrderRepository
	Product  repository.ProductRepository
	Category repository.CategoryRepository
}

// Services 服务集合
type Services struct {
	Auth          *service.AuthService
	Order         *service.OrderService
	OrderAction   *service.OrderActionService
	Product       *service.ProductService
	ProductAction *service.ProductActionService
	Settlement    *service.SettlementService
	Clients       service.ClientFactory
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config, logger *zap.Logger) *gorm.DB {
	db, err := database.Connect(cfg.Database.DSN())
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if err := database.Migrate(db,
		&model.Account{},
		&model.Order{}, &model.OrderItem{},
		&model.Product{}, &model.ProductVariant{}, &model.ProductListing{},
		&model.IntegrationCategory{}, &model.CategoryAttribute{},
	); err != nil {
		logger.Fatal("自动建表失败", zap.Error(err))
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Account:  repository.NewAccountRepository(db),
		Order:    repository.NewOrderRepository(db),
		Product:  repository.NewProductRepository(db),
		Category: repository.NewCategoryRepository(db),
	}

	// -------- 平台客户端 --------
	tkCfg := &tiktok.Config{
		AppKey:      cfg.TikTok.AppKey,
		AppSecret:   cfg.TikTok.AppSecret,
		APIBaseURI:  cfg.TikTok.APIBaseURI,
		AuthBaseURI: cfg.TikTok.AuthBaseURI,
	}
	clients := func(account *model.Account) *tiktok.Client {
		return tiktok.NewClient(tkCfg, account, repos.Account, logger)
	}

	// -------- 事件与存储 --------
	bus := initEventBus(cfg, logger)
	storage := initStorage(cfg, logger)

	// -------- 业务服务 --------
	services := &Services{Clients: clients}
	services.Auth = service.NewAuthService(&service.AuthConfig{
		IntegrationID:   cfg.TikTok.IntegrationID,
		AuthorizeURL:    cfg.TikTok.AuthorizeURL,
		DefaultCurrency: cfg.TikTok.DefaultCurrency,
	}, tkCfg, repos.Account, utils.NewKVCache(10*time.Minute), logger)

	services.Order = service.NewOrderService(clients, repos.Order, repos.Account, logger)
	services.OrderAction = service.NewOrderActionService(clients, services.Order, utils.RealSleeper{}, storage, logger)
	services.Product = service.NewProductService(clients, repos.Product, repos.Category, cfg.TikTok.IntegrationID, logger)
	services.ProductAction = service.NewProductActionService(clients, services.Product, repos.Product, utils.RealSleeper{}, logger)
	services.Settlement = service.NewSettlementService(clients, repos.Order, repos.Account, bus, logger)

	// -------- 平台适配器 --------
	adapters := integration.NewRegistry()
	if err := adapters.Register(cfg.TikTok.IntegrationID,
		integration.NewTikTokAdapter(services.Auth, services.Order, services.Product)); err != nil {
		logger.Fatal("适配器注册失败", zap.Error(err))
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Auth:  controller.NewAuthController(adapters, repos.Account, cfg.TikTok.IntegrationID),
		Order: controller.NewOrderController(adapters, repos.Account, repos.Order, services.OrderAction),
		Product: controller.NewProductController(
			adapters, repos.Account, repos.Product, repos.Category,
			services.Product, services.ProductAction,
		),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Adapters:    adapters,
		Bus:         bus,
		Controllers: controllers,
	}
}

// initEventBus kafka 未启用时降级为空实现
func initEventBus(cfg *config.Config, logger *zap.Logger) event.Bus {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return event.NopBus{}
	}
	return event.NewKafkaBus(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
}

// initStorage 面单归档存储，没配置时返回 nil 表示不归档
func initStorage(cfg *config.Config, logger *zap.Logger) service.StorageProvider {
	if cfg.Storage.Provider == "" {
		return nil
	}
	storage, err := service.NewStorageProvider(&service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		logger.Warn("存储初始化失败，面单不归档", zap.Error(err))
		return nil
	}
	return storage
}

// ==================== 定时任务 ====================

// initTasks 注册并启动所有周期任务
func initTasks(cfg *config.Config, deps *Dependencies, logger *zap.Logger) *task.Scheduler {
	integrationID := cfg.TikTok.IntegrationID

	tokenTask := task.NewTokenRefreshTask(deps.Repos.Account, deps.Services.Clients, integrationID, logger)
	orderTask := task.NewOrderSyncTask(deps.Repos.Account, deps.Services.Order, integrationID, logger)
	productTask := task.NewProductSyncTask(deps.Repos.Account, deps.Services.Product, integrationID, logger)
	settleTask := task.NewSettlementTask(deps.Repos.Account, deps.Services.Settlement, integrationID, logger)

	scheduler := task.NewScheduler(cfg.Tasks.JobTimeout, logger)
	scheduler.Register(
		task.Job{Name: "token_refresh", Spec: cfg.Tasks.TokenRefreshSpec, Run: tokenTask.Run},
		task.Job{Name: "order_sync", Spec: cfg.Tasks.OrderSyncSpec, Run: orderTask.Run},
		task.Job{Name: "product_sync", Spec: cfg.Tasks.ProductSyncSpec, Run: productTask.Run},
		task.Job{Name: "settlement", Spec: cfg.Tasks.SettlementSpec, Run: settleTask.Run},
	)

	if err := scheduler.Start(); err != nil {
		logger.Fatal("定时任务启动失败", zap.Error(err))
	}
	return scheduler
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(cfg *config.Config, handler http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务强制关闭", zap.Error(err))
	}
	logger.Info("服务已退出")
}
