// Package commands turns inbound chat lines into bot actions.
//
// Every message is first appended to the chat event log, then classified.
// While a poll is open a body of exactly "0" or "1" is a ballot and goes to
// the poll engine; that check runs before command lookup. Otherwise the first
// whitespace-separated token, lower-cased, is looked up in the Registry and
// the matching Command runs with the remaining tokens as arguments. Anything
// else is ignored.
//
// Command failures never reach chat as errors. Lookups that fail produce a
// fixed fallback reply, missing arguments produce a usage reply, and poll
// state conflicts produce a short notice addressed to the user.
package commands
