// Package reflection implements a reflection-based binary object
// serializer that writes and reads arbitrary in-memory object graphs
// to/from a byte stream.
//
// It preserves reference identity (shared references, cycles),
// polymorphism (an actual type that differs from the declared type),
// and enough on-wire schema information (TypeData) that a stream can be
// decoded even when the producer's exact type definitions aren't
// available to the consumer — in that case the unresolved parts of the
// graph surface as ObjectData instead of failing the whole decode.
//
// A single Engine, Writer, or Reader is not safe for concurrent use;
// see the threadsafe subpackage for a pooled wrapper.
package reflection
