package modules

import (
	"github.com/Seklfreak/Guardian/modules/plugins"
)

var (
	pluginCache map[string]*Plugin

	PluginList = []Plugin{
		&plugins.Immunity{},
		&plugins.Rules{},
		&plugins.BotStatus{},
	}
)
