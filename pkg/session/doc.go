/*
Package session implements visit management and persistence orchestration.

Every mutation of a visit goes through Manager.WithLock (or Update), which
serializes operations per key with reference-counted local mutexes and, when
a DistributedLocker is configured, a lock shared across replicas. Two
concurrent submits for the same visit therefore run one after the other, and
the page phase check rejects the second.
*/
package session
