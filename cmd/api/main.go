package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jamshaid11601/Emergent/internal/di"
	"github.com/jamshaid11601/Emergent/internal/handlers"
	"github.com/jamshaid11601/Emergent/internal/payments"
	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/config"
	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
	"github.com/jamshaid11601/Emergent/internal/platform/idempotency"
	"github.com/jamshaid11601/Emergent/internal/platform/jobs"
	"github.com/jamshaid11601/Emergent/internal/platform/observability"
	"github.com/jamshaid11601/Emergent/internal/platform/secrets"
	platformstorage "github.com/jamshaid11601/Emergent/internal/platform/storage"
	"github.com/jamshaid11601/Emergent/internal/repositories"
	firestoreRepo "github.com/jamshaid11601/Emergent/internal/repositories/firestore"
	"github.com/jamshaid11601/Emergent/internal/repositories/memory"
	"github.com/jamshaid11601/Emergent/internal/services"
)

const (
	messageRateLimit  = 30
	messageRateWindow = time.Minute
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger(os.Getenv("API_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)
	checks := make([]repositories.DependencyCheck, 0, 4)

	var (
		registry         repositories.Registry
		idempotencyStore idempotency.Store
	)
	switch cfg.DataBackend {
	case config.DataBackendMemory:
		memoryRegistry := memory.NewRegistry()
		registry = memoryRegistry
		idempotencyStore = idempotency.NewMemoryStore()
		checks = append(checks, repositories.DependencyCheck{
			Name:  "registry",
			Check: memoryRegistry.Ping,
		})
		logger.Warn("using in-memory data backend; state is lost on restart")
	default:
		firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := firestoreProvider.Client(ctx); err != nil {
			logger.Fatal("failed to initialise firestore client", zap.Error(err))
		}
		firestoreRegistry, err := firestoreRepo.NewRegistry(firestoreProvider)
		if err != nil {
			logger.Fatal("failed to initialise firestore registry", zap.Error(err))
		}
		registry = firestoreRegistry
		idempotencyStore = idempotency.NewFirestoreStore(firestoreProvider)
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check:   firestoreProvider.Ping,
		})
		checks = append(checks, secretManagerCheck(fetcher))
	}

	infra := di.Infrastructure{
		Payments: payments.NewMockProvider(),
		Build:    buildInfo,
		Clock:    time.Now,
		Logger:   observability.EventLogger,
	}

	metrics, err := observability.NewWorkflowMetrics(nil)
	if err != nil {
		logger.Warn("workflow metrics disabled", zap.Error(err))
	} else {
		infra.Metrics = metrics
	}

	publisher, pubsubClient, err := newEventPublisher(ctx, logger.Named("events"), cfg)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	if publisher != nil {
		infra.OrderEvents = publisher
		infra.CustomOrderEvents = publisher
		topic := pubsubClient.Topic(cfg.PubSub.OrderTopic)
		checks = append(checks, repositories.DependencyCheck{
			Name:     "pubsub",
			Timeout:  time.Second,
			Optional: true,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s not found", cfg.PubSub.OrderTopic)
				}
				return nil
			},
		})
		defer func() {
			publisher.Close()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}

	attachments, err := newAttachmentSigner(cfg)
	if err != nil {
		logger.Warn("delivery attachment uploads disabled", zap.Error(err))
	} else if attachments != nil {
		infra.Attachments = attachments
	}

	var authenticator *auth.Authenticator
	if strings.TrimSpace(cfg.Firebase.ProjectID) != "" {
		firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		authenticator = auth.NewAuthenticator(firebaseVerifier)
		infra.Identity = firebaseVerifier
	} else {
		logger.Warn("firebase project not configured; authenticated routes will reject requests")
	}

	healthRepo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		logger.Warn("health: dependency repository init failed", zap.Error(err))
	} else {
		infra.Health = healthRepo
	}

	container, err := di.NewContainer(ctx, cfg, registry, infra)
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()
	svc := container.Services

	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		idempotency.RunCleanup(cleanupCtx, idempotencyStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatchSize,
			observability.NewPrintfAdapter(logger.Named("idempotency")))
	}()

	oidcMiddleware := buildOIDCMiddleware(logger.Named("auth"), cfg)

	meHandlers := handlers.NewMeHandlers(authenticator, svc.Users)
	catalogHandlers := handlers.NewCatalogHandlers(authenticator, svc.Catalog, svc.Reviews)
	orderHandlers := handlers.NewOrderHandlers(authenticator, svc.Orders,
		handlers.WithOrderMessages(svc.Messages),
		handlers.WithMessageRateLimit(messageRateLimit, messageRateWindow, time.Now),
	)
	customOrderHandlers := handlers.NewCustomOrderHandlers(authenticator, svc.CustomOrders, svc.Users)
	reviewHandlers := handlers.NewReviewHandlers(authenticator, svc.Reviews)
	userHandlers := handlers.NewUserHandlers(svc.Users, svc.Reviews)
	adminHandlers := handlers.NewAdminHandlers(authenticator, svc.Users, svc.Orders)
	internalHandlers := handlers.NewInternalHandlers(svc.Reviews)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLogger(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.Recovery(logger.Named("http")),
		observability.RequestLogger(projectID),
		idempotencyMiddleware,
	}

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(buildInfo)}
	if svc.System != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(svc.System))
	}
	healthHandlers := handlers.NewHealthHandlers(healthOpts...)

	var opts []handlers.Option
	opts = append(opts, handlers.WithMiddlewares(middlewares...))
	opts = append(opts, handlers.WithHealthHandlers(healthHandlers))
	opts = append(opts, handlers.WithMeRoutes(meHandlers.Routes))
	opts = append(opts, handlers.WithServiceRoutes(catalogHandlers.Routes))
	opts = append(opts, handlers.WithOrderRoutes(orderHandlers.Routes))
	opts = append(opts, handlers.WithManagerRoutes(customOrderHandlers.ManagerRoutes))
	opts = append(opts, handlers.WithCustomOrderRoutes(customOrderHandlers.Routes))
	opts = append(opts, handlers.WithReviewRoutes(reviewHandlers.Routes))
	opts = append(opts, handlers.WithUserRoutes(userHandlers.Routes))
	opts = append(opts, handlers.WithAdminRoutes(adminHandlers.Routes))
	if oidcMiddleware != nil {
		opts = append(opts, handlers.WithInternalMiddlewares(oidcMiddleware))
		opts = append(opts, handlers.WithInternalRoutes(internalHandlers.Routes))
	} else {
		logger.Warn("auth: OIDC not configured; internal routes disabled")
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("backend", cfg.DataBackend))
	go func() {
		serverLogger.Info("marketplace api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func secretManagerCheck(fetcher *secrets.Fetcher) repositories.DependencyCheck {
	const secretHealthReference = "secret://system/healthz?version=latest"
	return repositories.DependencyCheck{
		Name:     "secretManager",
		Timeout:  time.Second,
		Optional: true,
		Check: func(ctx context.Context) error {
			_, err := fetcher.Resolve(ctx, secretHealthReference)
			if err == nil {
				return nil
			}
			if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
				return nil
			}
			return err
		},
	}
}

func newEventPublisher(ctx context.Context, logger *zap.Logger, cfg config.Config) (*jobs.PubSubEventPublisher, *pubsub.Client, error) {
	if !cfg.PubSub.Enabled {
		logger.Info("pubsub disabled; lifecycle events will not be published")
		return nil, nil, nil
	}
	var clientOpts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, clientOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	publisher, err := jobs.NewPubSubEventPublisher(
		client.Topic(cfg.PubSub.OrderTopic),
		client.Topic(cfg.PubSub.CustomOrderTopic),
		jobs.WithStateChangeHook(func(name, from, to string) {
			logger.Warn("event publisher breaker state changed",
				zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, client, nil
}

func newAttachmentSigner(cfg config.Config) (*platformstorage.Client, error) {
	bucket := strings.TrimSpace(cfg.Storage.AttachmentsBucket)
	if bucket == "" {
		return nil, nil
	}
	signer, err := platformstorage.NewServiceAccountSigner(cfg.Storage.SignedURLKey)
	if err != nil {
		return nil, err
	}
	return platformstorage.NewClient(bucket, signer, platformstorage.WithExpiry(cfg.Storage.UploadURLTTL))
}

func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.Security.OIDC.JWKSURL) == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL)
	var validatorOpts []auth.OIDCOption
	if recorder, err := auth.NewOTelRecorder(nil); err != nil {
		logger.Warn("auth: OIDC verification metrics disabled", zap.Error(err))
	} else {
		validatorOpts = append(validatorOpts, auth.WithVerificationRecorder(recorder))
	}
	validator := auth.NewOIDCValidator(cache, validatorOpts...)

	audience := strings.TrimSpace(cfg.Security.OIDC.Audience)
	if audience == "" {
		logger.Warn("auth: OIDC audience not configured; internal routes will reject requests")
	}
	return validator.RequireOIDC(audience, cfg.Security.OIDC.Issuers)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}
