/*
Package log provides structured logging for trustless using zerolog.

A single global Logger is configured once via Init and used throughout the
module. Component-specific child loggers are created with the With* helpers
so that log lines carry enough context (component, identity, store) to be
filtered without grepping message text.
*/
package log
