package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "mkt-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("unexpected shutdown timeout: %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.DataBackend != DataBackendFirestore {
		t.Errorf("expected firestore backend by default, got %s", cfg.DataBackend)
	}
	if cfg.Firestore.ProjectID != "mkt-dev" || cfg.PubSub.ProjectID != "mkt-dev" {
		t.Errorf("expected project ids to default to firebase project, got %s/%s", cfg.Firestore.ProjectID, cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.Enabled {
		t.Errorf("expected pubsub disabled by default")
	}
	if cfg.Orders.MaxRevisions != 1 {
		t.Errorf("expected one revision by default, got %d", cfg.Orders.MaxRevisions)
	}
	if cfg.Orders.CustomDeliveryDays != 7 {
		t.Errorf("expected custom delivery days 7, got %d", cfg.Orders.CustomDeliveryDays)
	}
	if cfg.Storage.UploadURLTTL != 15*time.Minute {
		t.Errorf("unexpected upload url ttl: %s", cfg.Storage.UploadURLTTL)
	}
	if cfg.Security.OIDC.JWKSURL != defaultOIDCJWKSURL {
		t.Errorf("expected default jwks url, got %s", cfg.Security.OIDC.JWKSURL)
	}
	if len(cfg.Security.OIDC.Issuers) != 2 {
		t.Errorf("expected default issuers, got %v", cfg.Security.OIDC.Issuers)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                 "9090",
		"API_SERVER_READ_TIMEOUT":         "20s",
		"API_LOG_LEVEL":                   "debug",
		"API_DATA_BACKEND":                "Memory",
		"API_FIREBASE_PROJECT_ID":         "mkt-prod",
		"API_FIRESTORE_PROJECT_ID":        "mkt-db",
		"API_PUBSUB_ENABLED":              "true",
		"API_PUBSUB_ORDER_TOPIC":          "orders",
		"API_STORAGE_ATTACHMENTS_BUCKET":  "mkt-attachments",
		"API_STORAGE_SIGNED_URL_KEY":      "sm://storage/signer",
		"API_STORAGE_UPLOAD_URL_TTL":      "5m",
		"API_ORDERS_MAX_REVISIONS":        "3",
		"API_ORDERS_CUSTOM_DELIVERY_DAYS": "10",
		"API_SECURITY_ENVIRONMENT":        "prod",
		"API_SECURITY_OIDC_AUDIENCES":     "prod=https://api.example.com, stg=https://stg.example.com",
		"API_SECURITY_OIDC_ISSUERS":       "https://accounts.google.com",
		"API_IDEMPOTENCY_TTL":             "48h",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://storage/signer" {
			return `{"client_email":"signer@example.com"}`, nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("unexpected log level %s", cfg.Logging.Level)
	}
	if cfg.DataBackend != DataBackendMemory {
		t.Errorf("expected memory backend, got %s", cfg.DataBackend)
	}
	if cfg.Firestore.ProjectID != "mkt-db" {
		t.Errorf("unexpected firestore project %s", cfg.Firestore.ProjectID)
	}
	if !cfg.PubSub.Enabled || cfg.PubSub.OrderTopic != "orders" || cfg.PubSub.CustomOrderTopic != defaultCustomOrderTopic {
		t.Errorf("unexpected pubsub config: %+v", cfg.PubSub)
	}
	if cfg.Storage.SignedURLKey != `{"client_email":"signer@example.com"}` {
		t.Errorf("expected signer key to be resolved, got %q", cfg.Storage.SignedURLKey)
	}
	if cfg.Storage.UploadURLTTL != 5*time.Minute {
		t.Errorf("unexpected upload ttl %s", cfg.Storage.UploadURLTTL)
	}
	if cfg.Orders.MaxRevisions != 3 || cfg.Orders.CustomDeliveryDays != 10 {
		t.Errorf("unexpected orders config: %+v", cfg.Orders)
	}
	if cfg.Security.OIDC.Audience != "https://api.example.com" {
		t.Errorf("expected audience picked by environment, got %s", cfg.Security.OIDC.Audience)
	}
	if len(cfg.Security.OIDC.Issuers) != 1 {
		t.Errorf("unexpected issuers %v", cfg.Security.OIDC.Issuers)
	}
	if cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency ttl %s", cfg.Idempotency.TTL)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "# local overrides\nexport API_FIREBASE_PROJECT_ID=\"from-dotenv\"\nAPI_SERVER_PORT=7070\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"API_SERVER_PORT": "6060"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "from-dotenv" {
		t.Errorf("expected project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected explicit env map to win over dotenv, got %s", cfg.Server.Port)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"API_DATA_BACKEND":                "postgres",
		"API_STORAGE_ATTACHMENTS_BUCKET":  "bucket",
		"API_ORDERS_MAX_REVISIONS":        "-1",
		"API_ORDERS_CUSTOM_DELIVERY_DAYS": "400",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	want := map[string]bool{
		"Firebase.ProjectID":        true,
		"DataBackend":               true,
		"Storage.SignedURLKey":      true,
		"Orders.MaxRevisions":       true,
		"Orders.CustomDeliveryDays": true,
	}
	fields := verr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for _, field := range fields {
		if !want[field] {
			t.Fatalf("unexpected field %s in %v", field, fields)
		}
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":    "mkt-dev",
		"API_STORAGE_SIGNED_URL_KEY": "sm://storage/missing",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var serr *SecretError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if serr.Ref != "secret://storage/missing" {
		t.Fatalf("expected normalised ref, got %s", serr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected resolver not configured cause, got %v", err)
	}
}
