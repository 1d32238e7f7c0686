package driver

import (
	"errors"

	"rtgen/internal/config"
	"rtgen/internal/diag"
	"rtgen/internal/layout"
	"rtgen/internal/rtti"
)

// codeOf picks the diagnostic code of a generation failure.
func codeOf(err error) diag.Code {
	var re *rtti.Error
	if errors.As(err, &re) {
		return re.Code()
	}
	var le *layout.LayoutError
	if errors.As(err, &le) {
		switch le.Kind {
		case layout.LayoutErrRecursiveUnsized:
			return diag.LayRecursiveUnsized
		case layout.LayoutErrLengthConversion:
			return diag.LayLengthConversion
		default:
			return diag.LayUnknownType
		}
	}
	var ce *config.Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return diag.RttiBackend
}

// report records err against the unit at path. The bag grows when full so
// a fatal error is never lost.
func report(bag *diag.Bag, path string, err error) {
	if bag == nil || err == nil {
		return
	}
	d := ErrorDiagnostic(path, err)
	if bag.Add(d) {
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(d)
	bag.Merge(overflow)
}

// ErrorDiagnostic converts a build or configuration failure into an error
// diagnostic located at path.
func ErrorDiagnostic(path string, err error) diag.Diagnostic {
	var ce *config.Error
	if errors.As(err, &ce) && ce.Path != "" {
		path = ce.Path
	}
	return diag.NewError(codeOf(err), diag.Span{File: path}, err.Error())
}
