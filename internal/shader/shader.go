// Package shader holds the WGSL sources used by the triangle pipeline and
// turns them into SPIR-V.
//
// The triangle stages are compiled once per process with naga. Callers that
// bring their own bytecode go through [Words], which checks the blob before
// it reaches the device.
package shader

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

// EntryPoint is the entry point name of both triangle stages.
const EntryPoint = "main"

// Magic is the first word of every SPIR-V module.
const Magic uint32 = 0x07230203

// SPIR-V blob errors.
var (
	// ErrEmpty is returned for a zero-length blob.
	ErrEmpty = errors.New("spirv: empty module")

	// ErrTruncated is returned when the blob length is not a multiple of 4.
	ErrTruncated = errors.New("spirv: length is not a multiple of 4")

	// ErrBadMagic is returned when the first word is not [Magic].
	ErrBadMagic = errors.New("spirv: bad magic number")
)

//go:embed triangle.vert.wgsl
var triangleVertexWGSL string

//go:embed triangle.frag.wgsl
var triangleFragmentWGSL string

// BlitWGSL is the fullscreen composite used after a multisample resolve.
// It exposes vs_main and fs_main.
//
//go:embed blit.wgsl
var BlitWGSL string

// Stage identifies a programmable pipeline stage.
type Stage uint8

const (
	// Vertex is the vertex stage.
	Vertex Stage = iota
	// Fragment is the fragment stage.
	Fragment
)

// String returns the lowercase stage name.
func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case Fragment:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

type triangleBlobs struct {
	vertex   []byte
	fragment []byte
}

var compileTriangle = sync.OnceValues(func() (triangleBlobs, error) {
	vs, err := Compile(Vertex, triangleVertexWGSL)
	if err != nil {
		return triangleBlobs{}, err
	}
	fs, err := Compile(Fragment, triangleFragmentWGSL)
	if err != nil {
		return triangleBlobs{}, err
	}
	return triangleBlobs{vertex: vs, fragment: fs}, nil
})

// Triangle returns the SPIR-V blobs of the triangle mesh stages. The result
// is computed on first use and shared; callers must not modify it.
func Triangle() (vertex, fragment []byte, err error) {
	b, err := compileTriangle()
	if err != nil {
		return nil, nil, err
	}
	return b.vertex, b.fragment, nil
}

// Compile compiles WGSL source to a SPIR-V blob.
func Compile(stage Stage, src string) ([]byte, error) {
	blob, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile %s shader: %w", stage, err)
	}
	return blob, nil
}

// Words converts a little-endian SPIR-V blob into 32-bit words.
func Words(blob []byte) ([]uint32, error) {
	switch {
	case len(blob) == 0:
		return nil, ErrEmpty
	case len(blob)%4 != 0:
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(blob))
	}

	words := make([]uint32, len(blob)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(blob[i*4:])
	}
	if words[0] != Magic {
		return nil, fmt.Errorf("%w: %#08x", ErrBadMagic, words[0])
	}
	return words, nil
}
