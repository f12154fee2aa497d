//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/ngaut/NexusCRM-sub002/internal/conf"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
)

// InitializeApp initializes the application with Wire
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(ProviderSet, newApp)
	return nil, nil, nil
}
