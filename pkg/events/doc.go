/*
Package events retains a bounded window of notable secrets-store
occurrences (unlock, lock, secret reads and writes, identity changes,
clipboard activity) so a UI can poll for what happened since it last
looked, rather than needing a live channel subscription open the
entire time.

A Hub is a fixed-capacity ring buffer of Events, each carrying a
monotonically increasing id. Publish appends an event, evicting the
oldest once the hub is full. PollEvents(lastID) returns everything
newer than lastID still retained, so a client that polls frequently
enough relative to the hub's capacity never misses an event.
*/
package events
