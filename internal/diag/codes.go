package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// manifest / configuration
	CfgInfo        Code = 1000
	CfgParse       Code = 1001
	CfgInvalid     Code = 1002
	CfgNotFound    Code = 1003
	CfgOutputClash Code = 1004 // two units write the same .ll file

	// unit loading
	UnitInfo         Code = 2000
	UnitParse        Code = 2001
	UnitUnknownType  Code = 2002
	UnitDuplicate    Code = 2003
	UnitBadTypeExpr  Code = 2004
	UnitUnknownFunc  Code = 2005
	UnitUnknownRoot  Code = 2006
	UnitBadBase      Code = 2007
	UnitEmptyModule  Code = 2008
	UnitBadAlignment Code = 2009

	// layout
	LayInfo             Code = 3000
	LayRecursiveUnsized Code = 3001 // value type contains itself
	LayUnknownType      Code = 3002
	LayLengthConversion Code = 3003

	// descriptor generation
	RttiInfo          Code = 4000
	RttiProtocol      Code = 4001 // push or finalize on a finalized builder
	RttiShapeMismatch Code = 4002 // aggregate disagrees with a concrete storage type
	RttiBackend       Code = 4003
	RttiUnsupported   Code = 4004

	// I/O
	IOLoadFileError  Code = 5001
	IOWriteFileError Code = 5002

	// Observability
	ObsInfo     Code = 6000
	ObsTimings  Code = 6001
	ObsCacheHit Code = 6002
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	CfgInfo:             "Configuration information",
	CfgParse:            "Malformed manifest",
	CfgInvalid:          "Invalid manifest value",
	CfgNotFound:         "Manifest not found",
	CfgOutputClash:      "Units share an output file",
	UnitInfo:            "Unit information",
	UnitParse:           "Malformed unit file",
	UnitUnknownType:     "Unknown type name",
	UnitDuplicate:       "Duplicate declaration",
	UnitBadTypeExpr:     "Malformed type expression",
	UnitUnknownFunc:     "Unknown function",
	UnitUnknownRoot:     "Unknown root type",
	UnitBadBase:         "Invalid base class",
	UnitEmptyModule:     "Missing module name",
	UnitBadAlignment:    "Invalid alignment",
	LayInfo:             "Layout information",
	LayRecursiveUnsized: "Recursive value type has infinite size",
	LayUnknownType:      "Unknown type in layout",
	LayLengthConversion: "Array length out of range",
	RttiInfo:            "Descriptor information",
	RttiProtocol:        "Descriptor builder protocol violation",
	RttiShapeMismatch:   "Descriptor shape mismatch",
	RttiBackend:         "Code generator failure",
	RttiUnsupported:     "Unsupported type for descriptor",
	IOLoadFileError:     "Cannot read file",
	IOWriteFileError:    "Cannot write file",
	ObsInfo:             "Observability information",
	ObsTimings:          "Phase timings",
	ObsCacheHit:         "Cached result reused",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("UNT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("RTI%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
