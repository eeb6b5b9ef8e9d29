// Package memory contains the per-task Memory Manager and concrete
// MemoryStore implementations. The store interface and record types reside
// in the core package. Import github.com/careerpilot/agentcore/core and
// depend on core.MemoryStore in your code; select an implementation (like
// the in-memory store below, or the sqlite-backed one in store/) at wiring
// time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends to be added without introducing dependency cycles.
package memory
