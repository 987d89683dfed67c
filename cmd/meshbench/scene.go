package main

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/image/math/f32"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/trimesh"
)

// maxSceneSize bounds how much of a scene file is read.
const maxSceneSize = 1 << 20

// Capacity holds initial buffer capacities in elements. Zero keeps the
// pipeline default.
type Capacity struct {
	Uniforms uint64 `yaml:"uniforms" toml:"uniforms"`
	Vertices uint64 `yaml:"vertices" toml:"vertices"`
	Indices  uint64 `yaml:"indices" toml:"indices"`
}

// Scene describes one benchmark run.
type Scene struct {
	Width        uint32 `yaml:"width" toml:"width"`
	Height       uint32 `yaml:"height" toml:"height"`
	Antialiasing string `yaml:"antialiasing" toml:"antialiasing"`
	Frames       int    `yaml:"frames" toml:"frames"`

	// Meshes is the number of draw items per frame, laid out on a grid.
	Meshes int     `yaml:"meshes" toml:"meshes"`
	Sides  int     `yaml:"sides" toml:"sides"`
	Radius float32 `yaml:"radius" toml:"radius"`
	// Shared draws every item from a single mesh instead of one per item.
	Shared bool `yaml:"shared" toml:"shared"`

	Capacity         Capacity `yaml:"capacity" toml:"capacity"`
	UniformAlignment uint64   `yaml:"uniform_alignment" toml:"uniform_alignment"`
	StagingChunk     uint64   `yaml:"staging_chunk" toml:"staging_chunk"`
	// ValidateMeshes checks every mesh before upload.
	ValidateMeshes bool `yaml:"validate" toml:"validate"`
}

// DefaultScene returns the scene used when no file is given.
func DefaultScene() Scene {
	return Scene{
		Width:            800,
		Height:           600,
		Antialiasing:     "msaa4x",
		Frames:           60,
		Meshes:           1000,
		Sides:            6,
		Radius:           8,
		UniformAlignment: 64,
	}
}

// LoadScene reads a YAML or TOML scene, picked by file extension. Keys
// missing from the file keep their DefaultScene values.
func LoadScene(path string) (Scene, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Scene{}, err
	}
	if info.Size() > maxSceneSize {
		return Scene{}, fmt.Errorf("scene %s: file too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, err
	}
	s, err := ParseScene(filepath.Ext(path), data)
	if err != nil {
		return Scene{}, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// ParseScene decodes data in the format named by ext (".yaml", ".yml" or
// ".toml") on top of DefaultScene and validates the result.
func ParseScene(ext string, data []byte) (Scene, error) {
	s := DefaultScene()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Scene{}, fmt.Errorf("decode yaml: %w", err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return Scene{}, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return Scene{}, fmt.Errorf("unsupported scene format %q", ext)
	}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Validate rejects scenes that cannot be rendered.
func (s Scene) Validate() error {
	var errs []error
	if s.Width == 0 || s.Height == 0 {
		errs = append(errs, fmt.Errorf("target size %dx%d is empty", s.Width, s.Height))
	}
	if _, err := trimesh.ParseAntialiasing(s.Antialiasing); err != nil {
		errs = append(errs, err)
	}
	if s.Frames < 1 {
		errs = append(errs, fmt.Errorf("frames must be positive, got %d", s.Frames))
	}
	if s.Meshes < 0 {
		errs = append(errs, fmt.Errorf("meshes must not be negative, got %d", s.Meshes))
	}
	if s.Sides < 3 {
		errs = append(errs, fmt.Errorf("a polygon needs at least 3 sides, got %d", s.Sides))
	}
	if s.Radius <= 0 {
		errs = append(errs, fmt.Errorf("radius must be positive, got %g", s.Radius))
	}
	if a := s.UniformAlignment; a == 0 || a&(a-1) != 0 {
		errs = append(errs, fmt.Errorf("uniform_alignment %d is not a power of two", a))
	}
	return errors.Join(errs...)
}

// AA returns the parsed antialiasing mode. The scene must be valid.
func (s Scene) AA() trimesh.Antialiasing {
	aa, _ := trimesh.ParseAntialiasing(s.Antialiasing)
	return aa
}

// Clip covers the whole target.
func (s Scene) Clip() trimesh.Rectangle {
	return trimesh.Rectangle{Width: s.Width, Height: s.Height}
}

// Items lays Meshes polygons out row by row across the target, wrapping
// back to the top once the target is full.
func (s Scene) Items() []trimesh.DrawItem {
	items := make([]trimesh.DrawItem, s.Meshes)
	var shared *trimesh.Mesh2D
	if s.Shared {
		shared = Polygon(s.Sides, s.Radius, hue(0))
	}

	cell := 2*s.Radius + 2
	cols := max(int(float32(s.Width)/cell), 1)
	rows := max(int(float32(s.Height)/cell), 1)
	for i := range items {
		col := i % cols
		row := (i / cols) % rows
		mesh := shared
		if mesh == nil {
			mesh = Polygon(s.Sides, s.Radius, hue(float32(i)/float32(max(s.Meshes, 1))))
		}
		items[i] = trimesh.DrawItem{
			Origin: trimesh.Pt(float32(col)*cell+cell/2, float32(row)*cell+cell/2),
			Mesh:   mesh,
		}
	}
	return items
}

// Polygon builds a regular polygon around the origin as a triangle fan:
// one center vertex followed by one vertex per side.
func Polygon(sides int, radius float32, color f32.Vec4) *trimesh.Mesh2D {
	m := &trimesh.Mesh2D{
		Vertices: make([]trimesh.Vertex2D, 0, sides+1),
		Indices:  make([]uint32, 0, 3*sides),
	}
	m.Vertices = append(m.Vertices, trimesh.Vertex2D{Color: color})
	for i := 0; i < sides; i++ {
		a := 2 * math.Pi * float64(i) / float64(sides)
		m.Vertices = append(m.Vertices, trimesh.Vertex2D{
			Position: f32.Vec2{radius * float32(math.Cos(a)), radius * float32(math.Sin(a))},
			Color:    color,
		})
	}
	for i := 0; i < sides; i++ {
		next := (i+1)%sides + 1
		m.Indices = append(m.Indices, 0, uint32(i+1), uint32(next))
	}
	return m
}

// hue maps t in [0, 1] onto a fully saturated opaque color.
func hue(t float32) f32.Vec4 {
	h := float64(t) * 6
	x := float32(1 - math.Abs(math.Mod(h, 2)-1))
	switch int(h) % 6 {
	case 0:
		return f32.Vec4{1, x, 0, 1}
	case 1:
		return f32.Vec4{x, 1, 0, 1}
	case 2:
		return f32.Vec4{0, 1, x, 1}
	case 3:
		return f32.Vec4{0, x, 1, 1}
	case 4:
		return f32.Vec4{x, 0, 1, 1}
	default:
		return f32.Vec4{1, 0, x, 1}
	}
}
