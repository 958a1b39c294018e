/*
Package ports defines the driven ports (interfaces) of the tooldeck engine.

These interfaces decouple the page lifecycle from external implementations,
allowing the engine to work with various backends and visit stores.

# Key Interfaces

  - Backend: Fetches tool options and computes results over HTTP.
  - StateStore: Responsible for persisting and loading visit State.
  - DistributedLocker: Provides distributed locking for concurrent visit access.
  - PageEngine: The lifecycle operations adapters (HTTP, MCP, terminal) drive.
*/
package ports
