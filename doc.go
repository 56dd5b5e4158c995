// Package xmpp provides the connection state machine for a federated XMPP
// server: stream negotiation, STARTTLS, SASL, resource binding, and the
// connection lifecycle phase guard that the cmd/waddled server loop and
// the S2S engine both build on.
//
// The library is organized into several layers:
//
//   - Core: JID parsing, XML streaming, stanza types, transport abstractions
//   - Session: Stream negotiation, SASL, TLS, resource binding, phase guard
//   - Pipeline/Routing: stanza processing chain and the bound-resource index
//   - Plugin System: extensible architecture for XEP implementations
//   - Plugins: server-side implementations of the supported XEPs
//
// Basic server usage:
//
//	server, err := xmpp.NewServer(domain,
//	    xmpp.WithServerAddr(":5222"),
//	    xmpp.WithServerTLS(certFile, keyFile),
//	    xmpp.WithServerSessionHandler(serveSession),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//
//	if err := server.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
package xmpp
