/*
Package storage provides BoltDB-backed persistence for the Fabric catalog.

The storage package implements the Store interface using BoltDB as the
underlying database, providing ACID transactions for control-plane state:
nodes, containers, managed services, usage records and invoices. All data
is serialized as JSON and stored in separate buckets.

# Architecture

	┌──────────────────── BOLTDB CATALOG ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            BoltStore                        │           │
	│  │  - File: path from DATABASE_URL             │           │
	│  │  - Format: B+tree with MVCC                 │           │
	│  │  - Transactions: ACID with fsync            │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │              Bucket Structure               │           │
	│  │  ┌────────────────────────────┐             │           │
	│  │  │ nodes       (Node ID)      │             │           │
	│  │  │ containers  (Container ID) │             │           │
	│  │  │ services    (Service ID)   │             │           │
	│  │  │ usage       (Record ID)    │             │           │
	│  │  │ invoices    (Invoice ID)   │             │           │
	│  │  └────────────────────────────┘             │           │
	│  └─────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────────┘

# Semantics

  - Create and Update are the same operation (upsert by ID)
  - Lookup misses wrap ErrNotFound for uniform translation
  - Filtered lists (by user, node, kind) scan and filter; the catalog
    is small enough that secondary indexes are not worth the upkeep
  - Buckets are created on open, so there is no migration step; new
    fields must be additive so old rows still decode

# Usage

	store, err := storage.NewBoltStore("/var/lib/fabric/fabric.db")
	if err != nil {
		return err
	}
	defer store.Close()

	node := &types.Node{ID: "node-1", URL: "http://10.0.0.5:8001"}
	if err := store.CreateNode(node); err != nil {
		return err
	}

# Concurrency

BoltDB serializes writes internally; reads run concurrently. Callers
never need their own locking for catalog access. The reconciler relies
on this: it re-reads each service row before writing so its sweep and
the API's writes interleave safely.
*/
package storage
