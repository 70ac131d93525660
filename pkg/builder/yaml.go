package builder

import (
	"github.com/Egham-7/bedtime-stories/internal/config"
	"github.com/gofiber/fiber/v2"
)

// FromYAML starts a builder from a config file so code can layer middleware on top
func FromYAML(path string, envFiles []string) (*Builder, error) {
	if len(envFiles) > 0 {
		config.LoadEnvFiles(envFiles)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	return builderFromConfig(cfg), nil
}

func builderFromConfig(cfg *config.Config) *Builder {
	return &Builder{
		cfg:         cfg,
		middlewares: []fiber.Handler{},
	}
}
