// main.go - The entry point and router setup for the inspection service.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/visual-inspector/configs"
	"github.com/bosocmputer/visual-inspector/internal/api"
	"github.com/bosocmputer/visual-inspector/internal/barcoderesolver"
	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/coordinator"
	"github.com/bosocmputer/visual-inspector/internal/golden"
	"github.com/bosocmputer/visual-inspector/internal/product"
	"github.com/bosocmputer/visual-inspector/internal/session"
)

func main() {
	configs.LoadConfig()

	if configs.GIN_MODE == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(configs.SHARED_ROOT, 0o755); err != nil {
		log.Fatalf("failed to create shared root: %v", err)
	}
	if err := os.MkdirAll(configs.CONFIG_ROOT, 0o755); err != nil {
		log.Fatalf("failed to create config root: %v", err)
	}

	sessions := session.NewManager(configs.SHARED_ROOT, time.Duration(configs.SESSION_IDLE_TIMEOUT_MINUTES)*time.Minute)
	stopSweeper := make(chan struct{})
	sessions.StartSweeper(time.Duration(configs.SESSION_SWEEP_INTERVAL_SECONDS)*time.Second, stopSweeper)
	defer close(stopSweeper)

	products := product.NewStore(configs.CONFIG_ROOT, time.Duration(configs.PRODUCT_CACHE_TTL_SECONDS)*time.Second)

	ocrBackend := capability.NewOCRBackendFromConfig()

	goldenRegistry := golden.NewRegistry(configs.CONFIG_ROOT)
	goldenStoreFor := func(productName string) capability.GoldenStore {
		return coordinator.NewGoldenCapabilityStore(goldenRegistry.Get(productName))
	}

	var linker barcoderesolver.Linker = barcoderesolver.NoOpLinker{}
	if configs.LINKING_SERVICE_URL != "" {
		linker = barcoderesolver.NewHTTPLinker(configs.LINKING_SERVICE_URL, time.Duration(configs.LINKING_TIMEOUT_SECONDS)*time.Second)
	}

	coord := &coordinator.Coordinator{
		Sessions:          sessions,
		SharedRoot:        configs.SHARED_ROOT,
		Products:          products,
		Capabilities:      coordinator.NewDefaultCapabilities(capability.NoOpDecoder{}, ocrBackend, goldenStoreFor),
		Linker:            linker,
		MaxWorkers:        configs.DISPATCHER_MAX_WORKERS,
		ClientMountPrefix: configs.CLIENT_MOUNT_PREFIX,
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", configs.ALLOWED_ORIGINS)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "visual-inspector"})
	})

	api.RegisterRoutes(router, api.NewHandlers(coord, sessions, products))

	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   3 * time.Minute,
		MaxHeaderBytes: 1 << 25,
	}

	go func() {
		log.Printf("starting server on :%s", configs.PORT)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
