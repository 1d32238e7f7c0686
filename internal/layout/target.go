package layout

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

func I386LinuxGNU() Target {
	return Target{
		Triple:   "i386-linux-gnu",
		PtrSize:  4,
		PtrAlign: 4,
	}
}

// TargetFor returns the known target with the given pointer size.
func TargetFor(triple string, ptrSize int) Target {
	t := X86_64LinuxGNU()
	if ptrSize == 4 {
		t = I386LinuxGNU()
	}
	if triple != "" {
		t.Triple = triple
	}
	return t
}
