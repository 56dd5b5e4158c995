package pubsub

import (
	"encoding/xml"
	"fmt"

	"github.com/waddle-im/waddle/internal/ns"
	"github.com/waddle-im/waddle/stanza"
	"github.com/waddle-im/waddle/storage"
)

// eventExtension builds the <event/> payload wrapping a single published
// item, as a generic stanza.Extension so callers need not depend on the
// message encoder knowing about pubsub event types directly.
func eventExtension(node string, item *storage.PubSubItem) stanza.Extension {
	inner := fmt.Sprintf(
		`<items node=%q><item id=%q>%s</item></items>`,
		node, item.ItemID, item.Payload,
	)
	return stanza.Extension{
		XMLName: xml.Name{Space: ns.PubSubEvent, Local: "event"},
		Inner:   []byte(inner),
	}
}
