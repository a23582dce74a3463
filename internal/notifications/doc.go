// Package notifications delivers push notifications for batch lifecycle
// events via ntfy. When no topic is configured the service degrades to a
// noop so callers never need to branch.
package notifications
