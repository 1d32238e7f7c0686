// Package rtti builds the static initializer of one runtime type
// descriptor.
//
// A Builder collects field values in order, starting with the dispatch table
// of the descriptor's runtime class and a null monitor slot. Finalize turns
// the collected values into an aggregate constant, refines the reserved
// storage to the aggregate's shape when that shape is still opaque, and
// installs the aggregate as the storage's initializer.
//
// Storage is reserved before any descriptor is built, so a descriptor may
// reference itself or a descriptor that is still under construction. The
// memo that decides whether a descriptor was already generated lives in the
// caller (see internal/typeinfo), not here.
package rtti
