// Package acquire sequences multi-episode download jobs.
//
// A Job names a starting point and a shape (a fixed number of episodes, one
// season, or the whole series). The Orchestrator walks the filtered season
// listing and hands each episode to a Capturer one at a time. A Token stops a
// run between episodes; episodes already captured are kept.
package acquire
