// Package bot holds the small built-in behaviour around the session: the
// welcome message sent to the bot's own chat, the ping/jid/owner commands
// and the delivery receipt log.
package bot
