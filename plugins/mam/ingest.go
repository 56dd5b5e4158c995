package mam

import (
	"context"
	"log"

	"github.com/waddle-im/waddle/pipeline"
	"github.com/waddle-im/waddle/stanza"
	"github.com/waddle-im/waddle/storage"
)

// Ingester adapts Plugin to pipeline.ArchiveIngester, appending eligible
// stanzas (messages with a body, per XEP-0313 §5) to the archive.
type Ingester struct {
	Plugin *Plugin
}

// Append archives st under the connection's local bare JID if it is an
// archivable message, silently skipping anything else; archive ingest
// must never fail the stanza pipeline.
func (i *Ingester) Append(ctx context.Context, pc *pipeline.Context, st stanza.Stanza) {
	msg, ok := st.(*stanza.Message)
	if !ok || msg.Body == "" {
		return
	}
	if i.Plugin == nil {
		return
	}
	err := i.Plugin.StoreMessage(ctx, &storage.ArchivedMessage{
		UserJID: pc.Identity.Local.Bare().String(),
		WithJID: msg.To.Bare().String(),
		FromJID: msg.From.String(),
		Data:    []byte(msg.Body),
	})
	if err != nil {
		log.Printf("mam: archive append failed: %v", err)
	}
}
