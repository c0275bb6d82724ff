/*
Package chainbase implements a versioned, in-memory index overlay on top
of a persistent ordered key/value store (in this case, on top of Bolt).

The overlay provides "undo sessions" over a logical collection of
uniquely-identified records: a caller stages a batch of inserts,
modifications and deletions — nested to arbitrary depth — and then either
commits it, discards it, or collapses it into the enclosing batch. This is
the foundational data layer for systems that must evaluate speculative
sequences of transactions and roll back to a previous logical revision on
conflict (the intended use case is a blockchain-style state machine
re-evaluating pending transactions against tentative state).

We implement:

1. Index, an ordered collection of records keyed by a monotone id, plus a
stack of undo levels. Mutations (emplace/modify/remove) both update the
live collection and append to the top undo level.

2. Database, a coordinator owning N indexes plus a handle to an external
ordered key/value store, so that all indexes progress through sessions in
lockstep by revision number.

# Technical Details

**Levels and revisions.**
Every open session pushes one level onto an index's undo stack and
increments a shared notion of "revision". Undo pops a level and replays
its pre-images; squash folds a level into the one beneath it; commit
drops levels that can no longer be reverted to.

**Borrow discipline.**
Find/Get return pointers borrowed from the live collection. They are only
valid until the next mutation on the same Index — this package performs
no defensive copying on read.

**Single writer.**
Index and Database perform no internal locking. Exactly one logical
writer is assumed; concurrent readers are safe as long as no writer is
active.

**Key/value adapter.**
Database wraps an external store (Bolt, or an in-memory map for tests)
behind four operations: get, put, delete, merge. Keys are 64-bit ids
serialized as decimal ASCII; values are opaque byte sequences — the typed
encoding of a record into those bytes is the caller's concern, not this
package's.
*/
package chainbase
