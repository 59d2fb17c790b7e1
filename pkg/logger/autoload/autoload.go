// Package autoload configures the global logger from LOGGER_* env at
// import time. Blank-import it from main.
package autoload

import (
	configx "github.com/xylosgroup/dynamics-mcp/pkg/config"
	logx "github.com/xylosgroup/dynamics-mcp/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOGGER"))
}
