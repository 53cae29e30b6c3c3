// Package domain contains the core entities of the reflection pipeline:
// batch jobs and their lifecycle, ISO weeks, weekly todo activity and the
// generated reflection records. It is independent of storage and transport.
package domain
