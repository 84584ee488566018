// Package autoload initializes the global logger from LOG_* environment
// variables as a blank-import side effect:
//
//	import _ "github.com/PH536-UI/mr-dom-ph-copilot/pkg/logger/autoload"
package autoload

import (
	configx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/config"
	logx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
