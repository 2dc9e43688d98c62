// Package events publishes state machine notifications to Redis.
//
// Every event is sent to a pub/sub channel and appended to a capped list so
// late subscribers can read the recent history.
package events
