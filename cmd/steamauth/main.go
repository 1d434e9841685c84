package main

import (
	"log"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/tradegate/steamauth"
	"github.com/tradegate/steamauth/adapters/events"
	"github.com/tradegate/steamauth/adapters/store"
	"github.com/tradegate/steamauth/ports"
	transport "github.com/tradegate/steamauth/transport/http"
)

func main() {
	apiKey := os.Getenv("STEAM_API_KEY")

	// Sidecar bearer key; empty disables the auth middleware
	bearerKey := os.Getenv("SIDECAR_BEARER_KEY")

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":9000"
	}

	// Without Redis the session store falls back to memory and no events
	// are published
	var sessionStore ports.SessionStore = store.NewMemoryStore()
	var eventPub ports.EventPublisher

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}

		redisClient := redis.NewClient(opts)
		sessionStore = store.NewRedisStore(redisClient)

		// Initialize Watermill Redis publisher
		logger := watermill.NewStdLogger(false, false)
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			logger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
		eventPub = events.NewWatermillPublisher(publisher)
	}

	client, err := steamauth.NewClient(apiKey, sessionStore, eventPub)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	// Setup Gin router
	router := transport.SetupRouter(client, bearerKey)

	// Start server
	if err := router.Run(listenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
