// Package image provides the camera image classifiers used by the security service.
//
// None of them runs a real model: RandomClassifier validates the payload and
// answers randomly, StaticClassifier always gives the same answer.
package image
