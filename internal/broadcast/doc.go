// Package broadcast fans state-change events out to connected real-time
// clients.
//
// Hub keeps a registry of subscribers. Publish serializes an event once and
// hands the same bytes to every subscriber registered at that moment. A
// subscriber that fails to accept a payload is pruned and closed; publishers
// never see delivery errors. Delivery is best effort, there is no replay for
// clients that connect later.
//
// ServeWS adapts the hub to WebSocket clients using gorilla/websocket.
package broadcast
