// Command cargoport runs the cargo port daemon and offers operator commands
// for inspecting cargo, editing cargo text, running single job ticks and
// managing configuration.
//
// Commands that read or edit cargo open the configured store directly, so
// they work whether or not the daemon is running. The status command asks a
// running daemon over its HTTP API.
package main
