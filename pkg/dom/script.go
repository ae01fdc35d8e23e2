package dom

import (
	"fmt"

	"github.com/dop251/goja"
)

// ScriptTag is an executable script whose body is the fetched text.
type ScriptTag struct {
	Type string
	Src  string
	Text string
}

// NewScriptTag returns a JavaScript tag with text as its body.
func NewScriptTag(src, text string) *ScriptTag {
	return &ScriptTag{
		Type: "text/javascript",
		Src:  src,
		Text: text,
	}
}

// Compile parses the script body.
func (s *ScriptTag) Compile() (*goja.Program, error) {
	prog, err := goja.Compile(s.Src, s.Text, false)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", s.Src, err)
	}
	return prog, nil
}

// Run compiles the script and executes it in vm.
func (s *ScriptTag) Run(vm *goja.Runtime) (goja.Value, error) {
	prog, err := s.Compile()
	if err != nil {
		return nil, err
	}
	v, err := vm.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", s.Src, err)
	}
	return v, nil
}

func (s *ScriptTag) String() string {
	return fmt.Sprintf("script (%d bytes)", len(s.Text))
}
