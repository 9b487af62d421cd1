//go:build integration

package app_test

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/partsinc/parts-server/internal/app"
	"github.com/partsinc/parts-server/internal/config"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/identity"
	"github.com/partsinc/parts-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name   string
	server *httptest.Server
	app    *app.App
}

var (
	backends      []backend
	testValidator *testutil.OpenAPIValidator
)

func fakeStripeServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_test","object":"payment_intent","client_secret":"pi_test_secret"}`))
	}))
}

func baseConfig(stripeURL string) *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.MetricsPort = "0"
	cfg.Server.LoginRateLimit = 1000
	cfg.Server.LoginRateBurst = 1000
	cfg.Database.ConnectAttempts = 3
	cfg.JWT.SecretKey = "integration-secret"
	cfg.Payments.StripeSecretKey = "sk_test_integration"
	cfg.Payments.StripeAPIURL = stripeURL
	cfg.Log = config.LogConfig{Level: "error", Format: "text"}
	return cfg
}

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	var err error
	testValidator, err = testutil.LoadOpenAPIValidator()
	if err != nil {
		log.Printf("load validator: %v", err)
		return 1
	}

	stripe := fakeStripeServer()
	defer stripe.Close()

	mongoContainer, err := testutil.NewMongoContainer(ctx)
	if err != nil {
		log.Printf("start mongo: %v", err)
		return 1
	}
	defer func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			log.Printf("terminate mongo: %v", err)
		}
	}()

	redisContainer, err := testutil.NewRedisContainer(ctx)
	if err != nil {
		log.Printf("start redis: %v", err)
		return 1
	}
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			log.Printf("terminate redis: %v", err)
		}
	}()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Printf("start postgres: %v", err)
		return 1
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	mongoCfg := baseConfig(stripe.URL)
	mongoCfg.Database.Driver = config.DriverMongo
	mongoCfg.Mongo.URI = mongoContainer.URI
	mongoCfg.Mongo.Database = "partsIntegration"
	mongoCfg.Cache.Enabled = true
	mongoCfg.Cache.RedisAddr = redisContainer.Addr

	pgCfg := baseConfig(stripe.URL)
	pgCfg.Database.Driver = config.DriverPostgres
	pgCfg.Postgres.URL = pgContainer.ConnectionString
	pgCfg.Postgres.AutoMigrate = true

	for _, c := range []struct {
		name string
		cfg  *config.Config
	}{
		{name: "mongo", cfg: mongoCfg},
		{name: "postgres", cfg: pgCfg},
	} {
		a, err := app.New(c.cfg)
		if err != nil {
			log.Printf("create %s app: %v", c.name, err)
			return 1
		}
		srv := httptest.NewServer(a.Router())
		backends = append(backends, backend{name: c.name, server: srv, app: a})
	}

	defer func() {
		for _, b := range backends {
			b.server.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := b.app.Shutdown(shutdownCtx); err != nil {
				log.Printf("shutdown %s app: %v", b.name, err)
			}
			cancel()
		}
	}()

	return m.Run()
}

// forEachBackend runs fn once per database driver.
func forEachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b)
		})
	}
}

func backendNamed(t *testing.T, name string) backend {
	t.Helper()
	for _, b := range backends {
		if b.name == name {
			return b
		}
	}
	t.Fatalf("no %s backend", name)
	return backend{}
}

func newTestClient(t *testing.T, b backend) *testutil.Client {
	t.Helper()
	client := testutil.NewClientWithValidator(b.server.URL, testValidator)
	client.SetT(t)
	return client
}

func loggedIn(t *testing.T, b backend, prefix string) (*testutil.Client, string) {
	t.Helper()
	email := testutil.RandomEmail(prefix)
	client := newTestClient(t, b)
	client.LoginAs(t, email, "")
	return client, email
}

func seedParts(t *testing.T, b backend, parts ...domain.Part) []string {
	t.Helper()
	ids, err := b.app.Store().Catalog.InsertParts(context.Background(), parts)
	require.NoError(t, err)
	require.Len(t, ids, len(parts))
	return ids
}

func TestIntegration_Banner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		client := newTestClient(t, b)

		resp, err := client.GET("/")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Parts Inc Server Is Running!", testutil.ReadBody(t, resp))
	})
}

func TestIntegration_UserProfile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		client, email := loggedIn(t, b, "profile")

		resp, err := client.PATCH("/user/"+email, map[string]string{"name": "Ada"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.PUT("/user/update/"+email, map[string]string{"phone": "555-0100", "education": "BSc"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.GET("/user/" + email)
		require.NoError(t, err)
		var got struct {
			User *domain.User `json:"user"`
		}
		testutil.DecodeJSON(t, resp, &got)
		require.NotNil(t, got.User)
		assert.Equal(t, "Ada", got.User.Name)
		assert.Equal(t, "555-0100", got.User.Phone)
		assert.Equal(t, "BSc", got.User.Education)

		resp, err = client.GET("/user/" + testutil.RandomEmail("nobody"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"user":null}`, testutil.ReadBody(t, resp))

		resp, err = client.GET("/admin/" + email)
		require.NoError(t, err)
		assert.JSONEq(t, `{"admin":false}`, testutil.ReadBody(t, resp))
	})
}

func TestIntegration_PasswordBinding(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		email := testutil.RandomEmail("secure")
		client := newTestClient(t, b)
		client.LoginAs(t, email, "correct-horse")

		resp, err := client.WithoutValidation().PUT("/user/"+email, map[string]string{"password": "wrong-password"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()

		client.LoginAs(t, email, "correct-horse")
		assert.NotEmpty(t, client.Token)
	})
}

func TestIntegration_Catalog(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		ids := seedParts(t, b,
			domain.Part{Name: "Bearing", Description: "608ZZ", Price: 2.5, Stock: 100},
			domain.Part{Name: "Gear", Description: "Spur gear", Price: 7, Stock: 12},
		)
		client, _ := loggedIn(t, b, "shopper")

		resp, err := client.GET("/parts?page=0&size=1")
		require.NoError(t, err)
		var page struct {
			Success bool          `json:"success"`
			Data    []domain.Part `json:"data"`
			Count   int64         `json:"count"`
		}
		testutil.DecodeJSON(t, resp, &page)
		assert.True(t, page.Success)
		assert.Len(t, page.Data, 1)
		assert.GreaterOrEqual(t, page.Count, int64(2))

		// Second read is served from the cache on the mongo backend.
		for range 2 {
			resp, err = client.GET("/parts/" + ids[1])
			require.NoError(t, err)
			var part domain.Part
			testutil.DecodeJSON(t, resp, &part)
			assert.Equal(t, ids[1], part.ID)
			assert.Equal(t, "Gear", part.Name)
		}

		resp, err = client.GET("/parts/not-an-id")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.GET("/parts?page=-1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestIntegration_OrderLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		client, email := loggedIn(t, b, "buyer")

		resp, err := client.POST("/order", map[string]interface{}{
			"partName": "Bearing",
			"quantity": 4,
			"amount":   10,
			"paid":     true,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var placed struct {
			InsertedID string `json:"insertedId"`
		}
		testutil.DecodeJSON(t, resp, &placed)
		require.NotEmpty(t, placed.InsertedID)
		orderPath := "/order/" + placed.InsertedID

		resp, err = client.GET(orderPath)
		require.NoError(t, err)
		var order domain.Order
		testutil.DecodeJSON(t, resp, &order)
		assert.Equal(t, email, order.Email)
		assert.False(t, order.Paid)

		resp, err = client.GET("/order/user/" + email)
		require.NoError(t, err)
		var mine []domain.Order
		testutil.DecodeJSON(t, resp, &mine)
		assert.Len(t, mine, 1)

		resp, err = client.GET("/order/" + email)
		require.NoError(t, err)
		testutil.DecodeJSON(t, resp, &mine)
		assert.Len(t, mine, 1)

		resp, err = client.PUT(orderPath, map[string]interface{}{"transactionId": "pi_test"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.PUT(orderPath, map[string]interface{}{"transactionId": "pi_again"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.DELETE(orderPath)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.PATCH(orderPath, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.GET(orderPath)
		require.NoError(t, err)
		testutil.DecodeJSON(t, resp, &order)
		assert.True(t, order.Paid)
		assert.Equal(t, "pi_test", order.TransactionID)
		assert.Equal(t, domain.OrderStatusShipped, order.Status)
	})
}

func TestIntegration_CancelUnpaidOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		client, _ := loggedIn(t, b, "canceler")

		resp, err := client.POST("/order", map[string]interface{}{"partName": "Gear", "amount": 7})
		require.NoError(t, err)
		var placed struct {
			InsertedID string `json:"insertedId"`
		}
		testutil.DecodeJSON(t, resp, &placed)

		resp, err = client.DELETE("/order/" + placed.InsertedID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.GET("/order/" + placed.InsertedID)
		require.NoError(t, err)
		assert.JSONEq(t, "null", testutil.ReadBody(t, resp))

		resp, err = client.DELETE("/order/" + placed.InsertedID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestIntegration_Reviews(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		client, email := loggedIn(t, b, "reviewer")

		resp, err := client.POST("/review", map[string]interface{}{"name": "Rae", "rating": 5, "text": "Fast shipping"})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = client.WithoutValidation().POST("/review", map[string]interface{}{"rating": 9, "text": "??"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()

		anonymous := newTestClient(t, b)
		resp, err = anonymous.GET("/review")
		require.NoError(t, err)
		var reviews []domain.Review
		testutil.DecodeJSON(t, resp, &reviews)

		var found bool
		for _, r := range reviews {
			if r.Email == email {
				found = true
				assert.Equal(t, 5, r.Rating)
			}
		}
		assert.True(t, found, "posted review is listed")
	})
}

func TestIntegration_AdminOperations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		admin, adminEmail := loggedIn(t, b, "admin")
		_, memberEmail := loggedIn(t, b, "member")

		resp, err := admin.GET("/user")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()

		require.NoError(t, b.app.Store().Identity.SetRole(context.Background(), adminEmail, domain.RoleAdmin))

		resp, err = admin.GET("/user")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = admin.GET("/order")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = admin.PATCH("/user/admin/"+memberEmail, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = admin.GET("/admin/" + memberEmail)
		require.NoError(t, err)
		assert.JSONEq(t, `{"admin":true}`, testutil.ReadBody(t, resp))

		resp, err = admin.DELETE("/user/" + memberEmail)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = admin.DELETE("/user/" + memberEmail)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestIntegration_PaymentIntent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		client, _ := loggedIn(t, b, "payer")

		resp, err := client.POST("/create-payment-intent", map[string]float64{"amount": 19.99})
		require.NoError(t, err)
		var got struct {
			ClientSecret string `json:"clientSecret"`
		}
		testutil.DecodeJSON(t, resp, &got)
		assert.Equal(t, "pi_test_secret", got.ClientSecret)
	})
}

func TestIntegration_AuthRequired(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		client := testutil.NewClient(b.server.URL)

		resp, err := client.GET("/parts")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()

		client.Token = "forged"
		resp, err = client.GET("/parts")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

// Accounts and orders stored by earlier releases keep their original email case.
func TestIntegration_MixedCaseLegacyEmails(t *testing.T) {
	b := backendNamed(t, "mongo")
	ctx := context.Background()
	store := b.app.Store()

	lower := testutil.RandomEmail("legacy")
	stored := strings.ToUpper(lower[:1]) + lower[1:]
	name := "Grace"
	require.NoError(t, store.Identity.UpsertUser(ctx, stored, identity.Profile{Name: &name}, ""))
	require.NoError(t, store.Orders.CreateOrder(ctx, &domain.Order{Email: stored, PartName: "Gear", Amount: 7}))

	client := newTestClient(t, b)
	client.LoginAs(t, lower, "")

	resp, err := client.GET("/user/" + lower)
	require.NoError(t, err)
	var got struct {
		User *domain.User `json:"user"`
	}
	testutil.DecodeJSON(t, resp, &got)
	require.NotNil(t, got.User)
	assert.Equal(t, "Grace", got.User.Name)
	assert.Equal(t, stored, got.User.Email)

	users, err := store.Identity.ListUsers(ctx)
	require.NoError(t, err)
	var matches int
	for _, u := range users {
		if strings.EqualFold(u.Email, lower) {
			matches++
		}
	}
	assert.Equal(t, 1, matches, "login must not create a second account")

	resp, err = client.GET("/order/user/" + lower)
	require.NoError(t, err)
	var mine []domain.Order
	testutil.DecodeJSON(t, resp, &mine)
	assert.Len(t, mine, 1)
}
