// Package engine owns a grid world and serialises every change to it.
//
// The engine ties the stamping core together: grid layers, the kernel
// cache, the curve and kind tables, the entity registry and the derived
// layer bindings.
//
// ARCHITECTURE:
//
// Batches:
// Every mutation runs inside a batch, either implicitly (Place, Remove,
// Toggle, SetValue) or explicitly through Batch. A batch holds the engine
// mutex for its whole duration, so readers never see a half-applied stamp.
//
// Operation flow for Place:
//  1. Resolve the request against the kind table
//  2. Fetch (or build) the kernel for (radius, curve)
//  3. Clip it at the anchor and validate the stamp against the layer
//  4. Reserve the entity, composite the stamp, commit the entity
//  5. Mark the layer dirty
//
// When the batch ends, derived layers whose sources are dirty are
// recomputed in dependency order, and the set of changed layers becomes
// LastDirty.
//
// Remove rebuilds the stamp from the fields recorded on the entity at
// placement and applies its inverse, which restores every touched cell
// exactly.
//
// Logical clock:
// Each successful operation is stamped with a seq from the Sequencer;
// each batch carries a token from the TokenGenerator. Neither uses wall
// time for ordering.
package engine
