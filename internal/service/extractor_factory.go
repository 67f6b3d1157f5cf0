package service

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/vigia/internal/config"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor/deepface"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor/mock"
)

// NewExtractor builds the extractor selected by configuration
func NewExtractor(cfg *config.Config) (extractor.Extractor, error) {
	switch cfg.ExtractorType {
	case "deepface":
		dfCfg := deepface.DefaultConfig()
		if cfg.DeepFaceURL != "" {
			dfCfg.BaseURL = cfg.DeepFaceURL
		}
		return deepface.NewProvider(dfCfg), nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown extractor type: %s", cfg.ExtractorType)
	}
}
