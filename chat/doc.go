// Package chat is the bot's Twitch IRC transport.
//
// Client wraps github.com/gempir/go-twitch-irc/v4. Inbound PRIVMSG lines are
// converted to Message values and handed to registered handlers in arrival
// order on the IRC reader goroutine. Messages sent by the bot account itself
// are flagged with Self so handlers can drop them.
//
// Outbound text goes through Say, which never blocks: lines are queued and a
// single sender goroutine (started by Run) drains the queue through a token
// bucket so the bot stays under Twitch's chat rate limit. When the queue is
// full the line is dropped and counted. Reconnection after a dropped
// connection is left to the IRC library.
//
// Credentials: the IRC client needs the bot username and an OAuth token with
// chat:read and chat:edit scopes. The "oauth:" prefix is added when missing.
package chat
