// Package store defines the persistence interfaces of the reflection
// pipeline: the batch job store, the reflection store and the read-only
// activity source. Implementations live under internal/platform.
package store
