package main

import (
	"fmt"
	"sort"

	"github.com/waddle-im/waddle/plugin"
	"github.com/waddle-im/waddle/plugins/avatar"
	"github.com/waddle-im/waddle/plugins/blocking"
	"github.com/waddle-im/waddle/plugins/bob"
	"github.com/waddle-im/waddle/plugins/bookmarks"
	"github.com/waddle-im/waddle/plugins/caps"
	"github.com/waddle-im/waddle/plugins/carbons"
	"github.com/waddle-im/waddle/plugins/chatmarkers"
	"github.com/waddle-im/waddle/plugins/chatstates"
	"github.com/waddle-im/waddle/plugins/commands"
	"github.com/waddle-im/waddle/plugins/correction"
	"github.com/waddle-im/waddle/plugins/csi"
	"github.com/waddle-im/waddle/plugins/delay"
	"github.com/waddle-im/waddle/plugins/dialback"
	"github.com/waddle-im/waddle/plugins/disco"
	"github.com/waddle-im/waddle/plugins/extdisco"
	"github.com/waddle-im/waddle/plugins/filetransfer"
	"github.com/waddle-im/waddle/plugins/form"
	"github.com/waddle-im/waddle/plugins/forward"
	"github.com/waddle-im/waddle/plugins/hash"
	"github.com/waddle-im/waddle/plugins/hints"
	"github.com/waddle-im/waddle/plugins/ibb"
	"github.com/waddle-im/waddle/plugins/jingle"
	"github.com/waddle-im/waddle/plugins/lastactivity"
	"github.com/waddle-im/waddle/plugins/mam"
	"github.com/waddle-im/waddle/plugins/mix"
	"github.com/waddle-im/waddle/plugins/moderation"
	"github.com/waddle-im/waddle/plugins/muc"
	"github.com/waddle-im/waddle/plugins/omemo"
	"github.com/waddle-im/waddle/plugins/oob"
	"github.com/waddle-im/waddle/plugins/ping"
	"github.com/waddle-im/waddle/plugins/presence"
	"github.com/waddle-im/waddle/plugins/pubsub"
	"github.com/waddle-im/waddle/plugins/push"
	"github.com/waddle-im/waddle/plugins/reactions"
	"github.com/waddle-im/waddle/plugins/receipts"
	"github.com/waddle-im/waddle/plugins/register"
	"github.com/waddle-im/waddle/plugins/retraction"
	"github.com/waddle-im/waddle/plugins/roster"
	"github.com/waddle-im/waddle/plugins/rsm"
	"github.com/waddle-im/waddle/plugins/sasl2"
	"github.com/waddle-im/waddle/plugins/sm"
	"github.com/waddle-im/waddle/plugins/socks5"
	"github.com/waddle-im/waddle/plugins/stanzaid"
	"github.com/waddle-im/waddle/plugins/styling"
	"github.com/waddle-im/waddle/plugins/time"
	"github.com/waddle-im/waddle/plugins/upload"
	"github.com/waddle-im/waddle/plugins/vcard"
	"github.com/waddle-im/waddle/plugins/version"
)

func pluginRegistry(cfg Config) map[string]func() plugin.Plugin {
	return map[string]func() plugin.Plugin{
		"avatar":       func() plugin.Plugin { return avatar.New() },
		"blocking":     func() plugin.Plugin { return blocking.New() },
		"bob":          func() plugin.Plugin { return bob.New() },
		"bookmarks":    func() plugin.Plugin { return bookmarks.New() },
		"caps":         func() plugin.Plugin { return caps.New(cfg.CapsNode) },
		"carbons":      func() plugin.Plugin { return carbons.New() },
		"chatmarkers":  func() plugin.Plugin { return chatmarkers.New() },
		"chatstates":   func() plugin.Plugin { return chatstates.New() },
		"commands":     func() plugin.Plugin { return commands.New() },
		"correction":   func() plugin.Plugin { return correction.New() },
		"csi":          func() plugin.Plugin { return csi.New() },
		"delay":        func() plugin.Plugin { return delay.New() },
		"dialback":     func() plugin.Plugin { return dialback.New() },
		"disco":        func() plugin.Plugin { return disco.New() },
		"extdisco":     func() plugin.Plugin { return extdisco.New() },
		"filetransfer": func() plugin.Plugin { return filetransfer.New() },
		"form":         func() plugin.Plugin { return form.New() },
		"forward":      func() plugin.Plugin { return forward.New() },
		"hash":         func() plugin.Plugin { return hash.New() },
		"hints":        func() plugin.Plugin { return hints.New() },
		"ibb":          func() plugin.Plugin { return ibb.New() },
		"jingle":       func() plugin.Plugin { return jingle.New() },
		"lastactivity": func() plugin.Plugin { return lastactivity.New() },
		"mam":          func() plugin.Plugin { return mam.New() },
		"mix":          func() plugin.Plugin { return mix.New() },
		"moderation":   func() plugin.Plugin { return moderation.New() },
		"muc":          func() plugin.Plugin { return muc.New() },
		"oob":          func() plugin.Plugin { return oob.New() },
		"omemo":        func() plugin.Plugin { return omemo.New(cfg.OMEMODeviceID) },
		"ping":         func() plugin.Plugin { return ping.New() },
		"presence":     func() plugin.Plugin { return presence.New() },
		"pubsub":       func() plugin.Plugin { return pubsub.New() },
		"push":         func() plugin.Plugin { return push.New() },
		"reactions":    func() plugin.Plugin { return reactions.New() },
		"receipts":     func() plugin.Plugin { return receipts.New() },
		"register":     func() plugin.Plugin { return register.New() },
		"retraction":   func() plugin.Plugin { return retraction.New() },
		"roster":       func() plugin.Plugin { return roster.New() },
		"rsm":          func() plugin.Plugin { return rsm.New() },
		"sasl2":        func() plugin.Plugin { return sasl2.New() },
		"sm":           func() plugin.Plugin { return sm.New() },
		"socks5":       func() plugin.Plugin { return socks5.New() },
		"stanzaid":     func() plugin.Plugin { return stanzaid.New() },
		"styling":      func() plugin.Plugin { return styling.New() },
		"time":         func() plugin.Plugin { return time.New() },
		"upload":       func() plugin.Plugin { return upload.New() },
		"vcard":        func() plugin.Plugin { return vcard.New() },
		"version":      func() plugin.Plugin { return version.New(cfg.VersionName, cfg.VersionString) },
	}
}

func buildPlugins(cfg Config) ([]plugin.Plugin, error) {
	reg := pluginRegistry(cfg)
	if len(cfg.Plugins) == 0 {
		return nil, nil
	}

	if len(cfg.Plugins) == 1 && cfg.Plugins[0] == "all" {
		keys := make([]string, 0, len(reg))
		for k := range reg {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		plugins := make([]plugin.Plugin, 0, len(keys))
		for _, k := range keys {
			plugins = append(plugins, reg[k]())
		}
		return plugins, nil
	}

	plugins := make([]plugin.Plugin, 0, len(cfg.Plugins))
	for _, name := range cfg.Plugins {
		ctor, ok := reg[name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin: %s", name)
		}
		plugins = append(plugins, ctor())
	}
	return plugins, nil
}
