package env

import (
	"github.com/mrivero/charge-controller/internal/config"
)

var Cfg *config.Config
