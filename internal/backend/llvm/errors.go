package llvm

import "fmt"

// SymbolKind classifies an emitted global.
type SymbolKind uint8

const (
	SymbolNone SymbolKind = iota
	SymbolDescriptor
	SymbolExternDescriptor
	SymbolData
	SymbolString
	SymbolVtbl
	SymbolExternVtbl
	SymbolFunc
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolDescriptor:
		return "descriptor"
	case SymbolExternDescriptor:
		return "extern descriptor"
	case SymbolData:
		return "data"
	case SymbolString:
		return "string"
	case SymbolVtbl:
		return "vtbl"
	case SymbolExternVtbl:
		return "extern vtbl"
	case SymbolFunc:
		return "func"
	default:
		return "none"
	}
}

// SymbolErrorKind classifies backend failures.
type SymbolErrorKind uint8

const (
	SymUnknownStorage SymbolErrorKind = iota + 1
	SymEmptyName
	SymConflict
	SymExternal
	SymNotOpaque
	SymOpaque
	SymAlreadyInitialized
	SymMissingInit
	SymTypeMismatch
)

// SymbolError is returned by storage and symbol-table operations.
type SymbolError struct {
	Kind   SymbolErrorKind
	Name   string
	ID     StorageID
	Have   SymbolKind
	Want   SymbolKind
	Detail string
}

func (e *SymbolError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case SymUnknownStorage:
		return fmt.Sprintf("unknown storage %d", e.ID)
	case SymEmptyName:
		return "empty symbol name"
	case SymConflict:
		return fmt.Sprintf("symbol %q already defined as %s, cannot define as %s", e.Name, e.Have, e.Want)
	case SymExternal:
		return fmt.Sprintf("storage %q is defined outside this unit", e.Name)
	case SymNotOpaque:
		return fmt.Sprintf("storage %q already has a concrete shape", e.Name)
	case SymOpaque:
		return fmt.Sprintf("storage %q is still opaque", e.Name)
	case SymAlreadyInitialized:
		return fmt.Sprintf("storage %q already has an initializer", e.Name)
	case SymMissingInit:
		return fmt.Sprintf("missing initializer for %q", e.Name)
	case SymTypeMismatch:
		return fmt.Sprintf("initializer of type %s does not match storage %q", e.Detail, e.Name)
	default:
		return fmt.Sprintf("symbol error on %q", e.Name)
	}
}
