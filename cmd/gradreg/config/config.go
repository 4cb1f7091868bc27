package config

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gradreg/internal/gradreg"
	"gradreg/internal/gradreg/data/database"
	"gradreg/internal/gradreg/gateway"
	"gradreg/internal/gradreg/reconciler"
	"gradreg/internal/gradreg/service"
)

const (
	serverAddressFlag    = "a"
	serverAddressEnv     = "RUN_ADDRESS"
	serverAddressDefault = "localhost:8080"

	dbConnectionStringFlag    = "d"
	dbConnectionStringEnv     = "DATABASE_URI"
	dbConnectionStringDefault = ""

	gatewayBaseURLFlag    = "g"
	gatewayBaseURLEnv     = "GATEWAY_BASE_URL"
	gatewayBaseURLDefault = "https://uat1.billdesk.com/u2/payments/ve1_2"

	gatewayMerchantIDEnv       = "GATEWAY_MERCHANT_ID"
	gatewayClientIDEnv         = "GATEWAY_CLIENT_ID"
	gatewaySigningSecretEnv    = "GATEWAY_SIGNING_SECRET"
	gatewayEncryptionSecretEnv = "GATEWAY_ENCRYPTION_SECRET"
	gatewayKeyIDEnv            = "GATEWAY_KEY_ID"
	paymentReturnURLEnv        = "PAYMENT_RETURN_URL"

	reconcileIntervalEnv  = "RECONCILE_INTERVAL"
	reconcileOlderThanEnv = "RECONCILE_OLDER_THAN"

	registrationFeeEnv      = "REGISTRATION_FEE"
	registrationCurrencyEnv = "REGISTRATION_CURRENCY"

	adminUsernameEnv = "ADMIN_USERNAME"
	adminPasswordEnv = "ADMIN_PASSWORD"
	jwtSecretEnv     = "JWT_SECRET"

	// A credential still carrying the setup guide's "your_..." filler is
	// treated the same as an absent one.
	placeholderMarker = "your_"

	registrationFeeDefault      = "500.00"
	registrationCurrencyDefault = "356"
	reconcileIntervalDefault    = 15 * time.Minute
	reconcileOlderThanDefault   = 10 * time.Minute
	gatewayTimeoutDefault       = 30 * time.Second
	jwtExpirationDefault        = 12 * time.Hour
	shutdownTimeoutDefault      = 5 * time.Second
)

type Config struct {
	Server          gradreg.Config
	DB              database.Config
	Gateway         gateway.Config
	GatewayStatus   gateway.ConfigurationStatus
	GatewaySecrets  GatewaySecrets
	Payments        service.PaymentsConfig
	Admin           service.AdminConfig
	JWT             JWTConfig
	Reconciler      reconciler.Config
	ShutdownTimeout time.Duration
}

type GatewaySecrets struct {
	SigningSecret    string
	EncryptionSecret string
	KeyID            string
}

type JWTConfig struct {
	Algorithm      string
	Secret         string
	ExpirationTime time.Duration
}

func Load() (*Config, error) {
	serverAddress := flag.String(
		serverAddressFlag,
		serverAddressDefault,
		"Server address host:port",
	)

	dbConnectionString := flag.String(
		dbConnectionStringFlag,
		dbConnectionStringDefault,
		"PostgreSQL connection string",
	)

	gatewayBaseURL := flag.String(
		gatewayBaseURLFlag,
		gatewayBaseURLDefault,
		"Payment gateway base URL",
	)

	flag.Parse()

	if valStr, ok := os.LookupEnv(serverAddressEnv); ok {
		*serverAddress = valStr
	}
	if valStr, ok := os.LookupEnv(dbConnectionStringEnv); ok {
		*dbConnectionString = valStr
	}
	if valStr, ok := os.LookupEnv(gatewayBaseURLEnv); ok {
		*gatewayBaseURL = valStr
	}

	returnURL := os.Getenv(paymentReturnURLEnv)
	if strings.ContainsAny(returnURL, "?&") {
		return nil, fmt.Errorf("%s must not contain query parameters: %q", paymentReturnURLEnv, returnURL)
	}

	fee, err := decimal.NewFromString(envOrDefault(registrationFeeEnv, registrationFeeDefault))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", registrationFeeEnv, err)
	}

	reconcileInterval, err := durationEnv(reconcileIntervalEnv, reconcileIntervalDefault)
	if err != nil {
		return nil, err
	}
	reconcileOlderThan, err := durationEnv(reconcileOlderThanEnv, reconcileOlderThanDefault)
	if err != nil {
		return nil, err
	}

	gatewayCfg := gateway.Config{
		BaseURL:             *gatewayBaseURL,
		MerchantID:          os.Getenv(gatewayMerchantIDEnv),
		ClientID:            os.Getenv(gatewayClientIDEnv),
		ReturnURL:           returnURL,
		Timeout:             gatewayTimeoutDefault,
		AdditionalInfoSlots: 3,
	}
	secrets := GatewaySecrets{
		SigningSecret:    os.Getenv(gatewaySigningSecretEnv),
		EncryptionSecret: os.Getenv(gatewayEncryptionSecretEnv),
		KeyID:            os.Getenv(gatewayKeyIDEnv),
	}

	return &Config{
		Server: gradreg.Config{
			ServerAddress:   *serverAddress,
			ShutdownTimeout: shutdownTimeoutDefault,
		},
		DB: database.Config{
			ConnectionString: *dbConnectionString,
			RetryAttemptDelays: []time.Duration{
				time.Second,
				3 * time.Second,
				5 * time.Second,
			},
		},
		Gateway:        gatewayCfg,
		GatewayStatus:  gatewayStatus(gatewayCfg, secrets),
		GatewaySecrets: secrets,
		Payments: service.PaymentsConfig{
			RegistrationFee: fee,
			Currency:        envOrDefault(registrationCurrencyEnv, registrationCurrencyDefault),
		},
		Admin: service.AdminConfig{
			Username: os.Getenv(adminUsernameEnv),
			Password: os.Getenv(adminPasswordEnv),
		},
		JWT: JWTConfig{
			Algorithm:      "HS256",
			Secret:         os.Getenv(jwtSecretEnv),
			ExpirationTime: jwtExpirationDefault,
		},
		Reconciler: reconciler.Config{
			TickPeriod:          reconcileInterval,
			OlderThan:           reconcileOlderThan,
			MaxConcurrentChecks: 5,
			BatchLimit:          100,
		},
		ShutdownTimeout: shutdownTimeoutDefault,
	}, nil
}

// gatewayStatus decides once, at startup, whether real gateway credentials
// are present. Missing or placeholder values switch the client to mock mode
// instead of failing the boot, so the rest of the system stays testable.
func gatewayStatus(cfg gateway.Config, secrets GatewaySecrets) gateway.ConfigurationStatus {
	fields := map[string]string{
		gatewayMerchantIDEnv:       cfg.MerchantID,
		gatewayClientIDEnv:         cfg.ClientID,
		gatewaySigningSecretEnv:    secrets.SigningSecret,
		gatewayEncryptionSecretEnv: secrets.EncryptionSecret,
		gatewayKeyIDEnv:            secrets.KeyID,
		paymentReturnURLEnv:        cfg.ReturnURL,
	}

	missing := make([]string, 0, len(fields))
	for name, value := range fields {
		if value == "" || strings.Contains(value, placeholderMarker) {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return gateway.ConfigurationStatus{
		Configured:    len(missing) == 0,
		MissingFields: missing,
	}
}

func envOrDefault(name string, defaultValue string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return defaultValue
}

func durationEnv(name string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return parsed, nil
}
