// Package shader compiles the WGSL sources used by the gfx backends.
package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/gogpu/gfx/backend"
)

// Embedded WGSL shader sources.

//go:embed shaders/sprite_vs.wgsl
var spriteVertexSource string

//go:embed shaders/sprite_ps.wgsl
var spritePixelSource string

// SpriteVertexSource returns the built-in sprite vertex shader.
func SpriteVertexSource() string { return spriteVertexSource }

// SpritePixelSource returns the built-in sprite pixel shader.
func SpritePixelSource() string { return spritePixelSource }

// Entry point names of the built-in sprite shaders.
const (
	SpriteVertexEntry = "vs_main"
	SpritePixelEntry  = "fs_main"
)

// ErrNoEntryPoint is returned when the source has no entry point for the
// requested stage.
var ErrNoEntryPoint = errors.New("shader: no entry point for stage")

// CompileError carries compiler diagnostics for one stage.
type CompileError struct {
	Stage       backend.Stage
	Phase       string
	Diagnostics []string
	Err         error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "shader: %s stage: %s", e.Stage, e.Phase)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n\t")
		b.WriteString(d)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compiler compiles WGSL to SPIR-V with naga and reflects vertex inputs.
// It implements backend.Compiler.
type Compiler struct {
	version spirv.Version
	debug   bool
}

// NewCompiler returns a compiler targeting SPIR-V 1.3 with validation on.
func NewCompiler() *Compiler {
	opts := naga.DefaultOptions()
	return &Compiler{version: opts.SPIRVVersion, debug: opts.Debug}
}

var _ backend.Compiler = (*Compiler)(nil)

// Compile parses, lowers, validates and translates source. The first entry
// point of the requested stage is selected.
func (c *Compiler) Compile(source string, stage backend.Stage) (*backend.Bytecode, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, &CompileError{Stage: stage, Phase: "parse", Err: err}
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, &CompileError{Stage: stage, Phase: "lower", Err: err}
	}

	diags, err := naga.Validate(module)
	if err != nil {
		return nil, &CompileError{Stage: stage, Phase: "validate", Err: err}
	}
	if len(diags) > 0 {
		msgs := make([]string, 0, len(diags))
		for i := range diags {
			msgs = append(msgs, diags[i].Error())
		}
		return nil, &CompileError{Stage: stage, Phase: "validate", Diagnostics: msgs}
	}

	ep := findEntryPoint(module, stage)
	if ep == nil {
		return nil, &CompileError{Stage: stage, Phase: "reflect", Err: ErrNoEntryPoint}
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: c.version, Debug: c.debug})
	if err != nil {
		return nil, &CompileError{Stage: stage, Phase: "codegen", Err: err}
	}

	bc := &backend.Bytecode{
		Stage:      stage,
		EntryPoint: ep.Name,
		SPIRV:      BytesToWords(code),
	}
	if stage == backend.StageVertex {
		bc.Inputs = vertexInputs(module, ep)
	}
	return bc, nil
}

func findEntryPoint(m *ir.Module, stage backend.Stage) *ir.EntryPoint {
	want := ir.StageVertex
	if stage == backend.StagePixel {
		want = ir.StageFragment
	}
	for i := range m.EntryPoints {
		if m.EntryPoints[i].Stage == want {
			return &m.EntryPoints[i]
		}
	}
	return nil
}

// vertexInputs collects @location arguments, looking through struct
// arguments whose members carry the locations.
func vertexInputs(m *ir.Module, ep *ir.EntryPoint) []backend.VertexInput {
	var inputs []backend.VertexInput
	add := func(b *ir.Binding, th ir.TypeHandle) {
		if b == nil {
			return
		}
		loc, ok := locationOf(*b)
		if !ok {
			return
		}
		inputs = append(inputs, backend.VertexInput{Location: loc, Components: components(m, th)})
	}

	for _, arg := range ep.Function.Arguments {
		if arg.Binding != nil {
			add(arg.Binding, arg.Type)
			continue
		}
		if int(arg.Type) >= len(m.Types) {
			continue
		}
		if st, ok := m.Types[arg.Type].Inner.(ir.StructType); ok {
			for _, member := range st.Members {
				add(member.Binding, member.Type)
			}
		}
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Location < inputs[j].Location })
	return inputs
}

func locationOf(b ir.Binding) (uint32, bool) {
	switch lb := b.(type) {
	case ir.LocationBinding:
		return lb.Location, true
	case *ir.LocationBinding:
		return lb.Location, true
	default:
		return 0, false
	}
}

func components(m *ir.Module, th ir.TypeHandle) int {
	if int(th) >= len(m.Types) {
		return 0
	}
	switch t := m.Types[th].Inner.(type) {
	case ir.ScalarType:
		return 1
	case ir.VectorType:
		return int(t.Size)
	default:
		return 0
	}
}

// BytesToWords converts little-endian SPIR-V bytes to 32-bit words.
// Trailing bytes that do not fill a word are dropped.
func BytesToWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}
