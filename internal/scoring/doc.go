// Package scoring turns raw score records into per-student composites and
// class level statistics. Every function here is pure: it performs no I/O,
// keeps no state between calls and never mutates its input.
package scoring
