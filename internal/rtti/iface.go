package rtti

import (
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"rtgen/internal/backend/llvm"
	"rtgen/internal/layout"
	"rtgen/internal/types"
)

// CodeGen is the code-generator surface a Builder needs.
type CodeGen interface {
	Target() layout.Target
	NullPtr() constant.Constant
	Uint(v uint32) constant.Constant
	SizeT(v uint64) constant.Constant
	Slice(n uint64, data constant.Constant) constant.Constant
	StringData(s string) constant.Constant
	DataGlobal(name string, init constant.Constant, align int) (constant.Constant, error)
	PaddedSize(t lltypes.Type) uint64
	Ref(id llvm.StorageID) (constant.Constant, error)
	Shape(id llvm.StorageID) (llvm.Shape, error)
	Refine(id llvm.StorageID, fields []lltypes.Type) error
	SetInitializer(id llvm.StorageID, init constant.Constant) error
}

// Resolver hands out descriptor storage and the other symbols a descriptor
// refers to. TypeInfoOf and ClassInfoOf must return storage that is at least
// reserved, even when the descriptor behind it is still being built.
type Resolver interface {
	ClassVtbl(cls types.TypeID) (constant.Constant, error)
	TypeInfoOf(t types.TypeID) (llvm.StorageID, error)
	ClassInfoOf(cls types.TypeID) (llvm.StorageID, error)
	FuncEntry(fn types.FuncID) (constant.Constant, error)
	Mangle(t types.TypeID) string
	ArrayRole(elem types.TypeID) string
	AlignOf(t types.TypeID) (int, error)
}

var _ CodeGen = (*llvm.Module)(nil)
