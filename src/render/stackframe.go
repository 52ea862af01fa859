package render

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

type stackFrame struct {
	file     string
	line     int
	function string
}

func newStackFrame(pc uintptr) stackFrame {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return stackFrame{function: "unknown"}
	}
	file, line := fn.FileLine(pc)
	name := fn.Name()
	// trim the import path, keep pkg.Func
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return stackFrame{
		file:     filepath.Base(file),
		line:     line,
		function: name,
	}
}

func (s stackFrame) String() string {
	if s.file == "" {
		return s.function
	}
	return fmt.Sprintf("%s (%s:%d)", s.function, s.file, s.line)
}
