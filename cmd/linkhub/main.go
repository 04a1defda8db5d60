package main

import (
	"log"
	"os"

	v1 "linkhub/api/v1"
	"linkhub/internal/auth"
	"linkhub/internal/cache"
	"linkhub/internal/config"
	"linkhub/internal/customdomain"
	"linkhub/internal/db"
	"linkhub/internal/dnslookup"
	"linkhub/internal/hostnames"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Println("✓ Configuration loaded")

	// 2. Initialize MySQL
	if err := db.InitMySQL(cfg.MySQL.DSN); err != nil {
		log.Fatalf("Failed to initialize MySQL: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(db.DB); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
			os.Exit(1)
		}
		log.Println("✓ Database migrated")
	}

	// 3. Initialize Redis
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
		os.Exit(1)
	}
	defer cache.Close()

	// 4. Initialize JWT
	auth.InitJWT(cfg.JWT.Secret)

	// 5. Wire the custom hostname client
	var client hostnames.Client
	if cfg.Cloudflare.Offline {
		client = hostnames.NewFakeClient()
		log.Println("✓ Custom hostname client in offline mode")
	} else {
		client = hostnames.NewCloudflareClient(cfg.Cloudflare.ZoneID, cfg.Cloudflare.APIToken)
	}

	logger := logrus.NewEntry(logrus.StandardLogger())
	registry := customdomain.NewRegistry(db.DB)
	verifier := customdomain.NewVerifier(&customdomain.VerifierConfig{
		Registry:    registry,
		Resolver:    dnslookup.NewNetResolver(),
		Hostnames:   client,
		CNAMETarget: cfg.Verification.CNAMETarget,
		Logger:      logger,
	})
	svc := customdomain.NewService(&customdomain.ServiceConfig{
		DB:                 db.DB,
		Registry:           registry,
		Hostnames:          client,
		Cache:              cache.Client,
		Logger:             logger,
		TXTRecordPrefix:    cfg.Verification.TXTRecordPrefix,
		CNAMETarget:        cfg.Verification.CNAMETarget,
		ResolveCacheTTLSec: cfg.Verification.ResolveCacheTTLSec,
	})

	// 6. Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// Setup API v1 routes
	v1.SetupRouter(r, db.DB, cfg, svc, verifier)

	log.Printf("✓ Server starting on %s", cfg.HTTPAddr)

	// Start server
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
