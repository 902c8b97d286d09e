package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hibiken/asynq"

	"swisswheels/app/internal/api"
	"swisswheels/app/internal/cache"
	"swisswheels/app/internal/config"
	"swisswheels/app/internal/db"
	"swisswheels/app/internal/email"
	"swisswheels/app/internal/realtime"
	"swisswheels/app/internal/services"
	"swisswheels/app/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Realtime broker: NATS when configured, in-process hub otherwise.
	var broker realtime.Broker
	if cfg.NatsURL != "" {
		natsBroker, err := realtime.NewNatsBroker(cfg.NatsURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS at %s: %v", cfg.NatsURL, err)
		}
		broker = natsBroker
		fmt.Printf("Realtime events via NATS at %s\n", cfg.NatsURL)
	} else {
		broker = realtime.NewHub()
		fmt.Println("Realtime events via in-process hub.")
	}
	defer broker.Close()

	// S3 client for the image worker.
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		log.Fatalf("Failed to load AWS config for S3 client: %v", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	emailSender := email.NewSender(cfg)

	listingService := services.NewListingService(mongoDb, cfg, redisClient, broker)
	userService := services.NewUserService(mongoDb, cfg)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	taskProcessor := tasks.NewTaskProcessor(cfg, emailSender, listingService, userService, s3Client)

	var wg sync.WaitGroup
	var apiSrv *http.Server
	var taskSrv *asynq.Server

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		router := api.SetupRouter(cfg, mongoDb, redisClient, broker, taskClient)
		apiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("API listening on :%s\n", cfg.ApiPort)
			if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("API ListenAndServe error: %v", err)
			}
			fmt.Println("API server stopped.")
		}()
	}

	bgMode := func() {
		srv, mux := tasks.NewServer(redisClient, taskProcessor)
		taskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Println("Background task server starting...")
			if err := taskSrv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			fmt.Println("Background task server stopped.")
		}()

		// Periodically sweep stale anonymous accounts.
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(6 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-cleanupCtx.Done():
					return
				case <-ticker.C:
					task := asynq.NewTask(tasks.TypeAnonCleanup, nil)
					if _, err := taskClient.Enqueue(task, asynq.Queue(tasks.QueueDefault)); err != nil {
						log.Printf("Failed to enqueue anonymous cleanup: %v", err)
					}
				}
			}
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode: %s.", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	cancelCleanup()

	if apiSrv != nil {
		fmt.Println("Shutting down API server...")
		if err := apiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
	}
	if taskSrv != nil {
		fmt.Println("Shutting down background task server...")
		taskSrv.Shutdown()
	}

	wg.Wait()
	fmt.Println("Application shut down.")
}
