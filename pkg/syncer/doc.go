/*
Package syncer reconciles a local blockstore.Store with a remote one:
rings converge to the higher version on each side, blocks present on one
side and not deleted on the other are copied across, other nodes' change
logs are copied from remote into local, and the local node's own change
log is pushed to remote. It runs as a background loop
on an interval and also exposes a synchronous SyncNow for callers that
want to force a pass.
*/
package syncer
