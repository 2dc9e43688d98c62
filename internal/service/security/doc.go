// Package security implements the alarm state machine.
//
// The Service owns no state of its own: arming status, alarm status and
// sensors live in a Repository, and cat detection is delegated to an
// ImageClassifier. Every alarm status change is computed by a single
// transition table (see transitions.go) so the rule set stays auditable.
package security
