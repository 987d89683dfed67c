// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package trimesh

import (
	"fmt"
	"strings"
)

// Antialiasing selects a multisample count. The zero value disables
// multisampling.
type Antialiasing uint8

// Antialiasing modes.
const (
	AntialiasingOff Antialiasing = iota
	MSAAx2
	MSAAx4
	MSAAx8
	MSAAx16
)

// SampleCount returns the number of samples per pixel.
func (a Antialiasing) SampleCount() uint32 {
	switch a {
	case MSAAx2:
		return 2
	case MSAAx4:
		return 4
	case MSAAx8:
		return 8
	case MSAAx16:
		return 16
	default:
		return 1
	}
}

// String returns the mode name.
func (a Antialiasing) String() string {
	switch a {
	case AntialiasingOff:
		return "off"
	case MSAAx2:
		return "msaa2x"
	case MSAAx4:
		return "msaa4x"
	case MSAAx8:
		return "msaa8x"
	case MSAAx16:
		return "msaa16x"
	default:
		return fmt.Sprintf("Antialiasing(%d)", uint8(a))
	}
}

// ParseAntialiasing parses a mode name as produced by String. It also
// accepts a bare sample count ("4") and the empty string for off.
func ParseAntialiasing(s string) (Antialiasing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none", "1":
		return AntialiasingOff, nil
	case "msaa2x", "2":
		return MSAAx2, nil
	case "msaa4x", "4":
		return MSAAx4, nil
	case "msaa8x", "8":
		return MSAAx8, nil
	case "msaa16x", "16":
		return MSAAx16, nil
	}
	return AntialiasingOff, fmt.Errorf("trimesh: unknown antialiasing mode %q", s)
}
