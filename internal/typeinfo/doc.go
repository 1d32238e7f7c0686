// Package typeinfo decides which runtime descriptors a module needs and
// fills each one through an rtti.Builder.
//
// The Generator memoizes descriptors by type. On first request it reserves
// the descriptor's storage, records the reservation and only then builds
// the fields, so a type that refers back to itself (directly or through its
// class-info) resolves to the reserved storage instead of recursing.
// Descriptors of basic types and of runtime declarations are declared as
// externals and never built here.
package typeinfo
