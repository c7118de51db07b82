// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/edumanager/edumanager/api"
	"github.com/edumanager/edumanager/auth"
	"github.com/edumanager/edumanager/core/client"
	"github.com/edumanager/edumanager/core/logger"
	"github.com/edumanager/edumanager/core/mirror"
	"github.com/edumanager/edumanager/edu"
	"github.com/edumanager/edumanager/notify"
	"github.com/edumanager/edumanager/reports"
)

// Service holds the configuration for this service
type Service struct {
	StoreURL    string `env:"STORE_URL,required" description:"base url of the hosted row store"`
	StoreAPIKey string `env:"STORE_API_KEY,required" description:"anon api key, a JWT"`

	JWTSecret string `env:"JWT_SECRET" description:"HS256 secret for bearer validation; empty disables the middleware"`

	MirrorDir string `env:"MIRROR_DIR,default=.edumanager" description:"directory for the file mirror"`
	RedisAddr string `env:"REDIS_ADDR" description:"redis address for a shared mirror; empty selects the file mirror"`

	DefaultRecipient string `env:"NOTIFY_DEFAULT_RECIPIENT" description:"seed recipient for notification settings"`
	EmailConsole     bool   `env:"EMAIL_CONSOLE,default=false" description:"log email instead of sending it"`

	ReportHeartbeat time.Duration `env:"REPORT_HEARTBEAT,default=1h" description:"weekly report check interval"`

	Port     string `env:"PORT,default=3000"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	level, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.InitLogger(level)
	rlog := logger.Default()

	// a malformed endpoint would fail every request later, refuse to
	// start instead
	if _, err := url.ParseRequestURI(service.StoreURL); err != nil {
		panic(fmt.Errorf("STORE_URL is not a valid url: %w", err))
	}
	if !strings.HasPrefix(service.StoreAPIKey, "eyJ") {
		panic("STORE_API_KEY does not look like a JWT")
	}

	storeClient := client.NewWithURL(service.StoreURL, service.StoreAPIKey)
	probeConnection(storeClient, rlog)

	var backend mirror.Backend
	if service.RedisAddr != "" {
		backend = mirror.NewRedisBackend(redis.NewClient(&redis.Options{Addr: service.RedisAddr}))
		rlog.Infof("mirror: redis at %s", service.RedisAddr)
	} else {
		backend = mirror.MustNewFileBackend(service.MirrorDir)
		rlog.Infof("mirror: files in %s", service.MirrorDir)
	}
	m := mirror.New(backend)

	var sender notify.Sender
	if service.EmailConsole {
		sender = notify.ConsoleSender{}
	} else {
		sender = notify.NewEdgeFunctionSender(service.StoreURL, service.StoreAPIKey)
	}
	dispatcher := notify.NewDispatcher(sender)

	router := mux.NewRouter()
	logger.AddRequestID(router)
	if service.JWTSecret != "" {
		router.Use(auth.NewMiddleware(service.JWTSecret))
	}

	api.MustNew(&api.Builder{
		Client:           storeClient,
		Mirror:           m,
		Dispatcher:       dispatcher,
		Auth:             auth.NewClient(service.StoreURL, service.StoreAPIKey),
		Router:           router,
		DefaultRecipient: service.DefaultRecipient,
	})

	reporter := reports.New(storeClient, m, dispatcher,
		edu.DefaultNotificationSettings(service.DefaultRecipient))
	reporter.RunAsync(context.Background(), service.ReportHeartbeat)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "apikey"}),
	)

	rlog.Infof("listen on port :%s", service.Port)
	rlog.Fatal(http.ListenAndServe(":"+service.Port,
		handlers.CompressHandler(cors(router))))
}

// probeConnection makes a cheap select against professores to verify the
// store is reachable on startup. A failing probe is logged, not fatal;
// the store may simply not be up yet.
func probeConnection(c client.Client, rlog *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var raw []byte
	collection := c.WithContext(ctx).Collection(edu.CollectionProfessores).WithParameter("limit", "1")
	if _, err := collection.List(&raw); err != nil {
		rlog.Warnf("store connection probe failed: %s", err)
		return
	}
	rlog.Info("store connection established")
}
