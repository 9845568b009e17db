package observability

import (
	"github.com/danmuck/wlcore/internal/logs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger derives the request logger from the shared logs facade and
// installs it as the zerolog global for libraries that log through it.
func InitLogger(app string) zerolog.Logger {
	logger := logs.Logger().With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
