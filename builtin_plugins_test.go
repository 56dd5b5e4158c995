package xmpp_test

import (
	"context"
	"testing"

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
	"github.com/waddle-im/waddle/storage/memory"
)

func TestBuiltinPluginsInitializeAndClose(t *testing.T) {
	mgr := plugin.NewManager()
	all := []plugin.Plugin{
		avatar.New(),
		blocking.New(),
		bob.New(),
		bookmarks.New(),
		caps.New("https://example.com/client"),
		carbons.New(),
		chatmarkers.New(),
		chatstates.New(),
		commands.New(),
		correction.New(),
		csi.New(),
		delay.New(),
		dialback.New(),
		disco.New(),
		extdisco.New(),
		filetransfer.New(),
		form.New(),
		forward.New(),
		hash.New(),
		hints.New(),
		ibb.New(),
		jingle.New(),
		lastactivity.New(),
		mam.New(),
		mix.New(),
		moderation.New(),
		muc.New(),
		oob.New(),
		omemo.New(123456),
		ping.New(),
		presence.New(),
		pubsub.New(),
		push.New(),
		reactions.New(),
		receipts.New(),
		register.New(),
		retraction.New(),
		roster.New(),
		rsm.New(),
		sasl2.New(),
		sm.New(),
		socks5.New(),
		stanzaid.New(),
		styling.New(),
		time.New(),
		upload.New(),
		vcard.New(),
		version.New("xmpp-go", "test"),
	}

	for _, p := range all {
		if err := mgr.Register(p); err != nil {
			t.Fatalf("register %q: %v", p.Name(), err)
		}
	}

	params := plugin.InitParams{
		SendRaw: func(context.Context, []byte) error { return nil },
		SendElement: func(context.Context, any) error {
			return nil
		},
		State:     func() uint32 { return 0 },
		LocalJID:  func() string { return "alice@example.com" },
		RemoteJID: func() string { return "bob@example.com" },
		Storage:   memory.New(),
	}

	if err := mgr.Initialize(context.Background(), params); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
