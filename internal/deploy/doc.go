// Package deploy models the container recipe that packages the streaming
// daemon: a typed descriptor, a deterministic Dockerfile renderer, a parser
// for rendered recipes, and a static conformance check.
//
// The checked-in root Dockerfile is the rendered form of Default(); the two
// must stay in agreement, which the package tests enforce. The recipe itself
// stays thin: base image, OS packages, dependency manifest,
// binaries, declared port, and the single startup command. Supervision,
// restarts, and health checks belong to the orchestrator, not the image.
package deploy
