package main

import (
	"log"
	"os"
	_ "time/tzdata"

	"github.com/Egham-7/bedtime-stories/internal/config"
	pkgconfig "github.com/Egham-7/bedtime-stories/pkg/config"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	proxy := pkgconfig.NewProxy(cfg)

	log.Println("Starting bedtime stories server...")
	if err := proxy.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
