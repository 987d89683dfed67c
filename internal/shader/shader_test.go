package shader

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func blob(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func TestWords(t *testing.T) {
	tests := []struct {
		name    string
		blob    []byte
		want    int
		wantErr error
	}{
		{"empty", nil, 0, ErrEmpty},
		{"truncated", []byte{0x03, 0x02, 0x23}, 0, ErrTruncated},
		{"bad magic", blob(0xdeadbeef, 1), 0, ErrBadMagic},
		{"header only", blob(Magic), 1, nil},
		{"header and body", blob(Magic, 0x00010000, 0, 7, 0), 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := Words(tt.blob)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Words() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Words() unexpected error: %v", err)
			}
			if len(words) != tt.want {
				t.Errorf("len(words) = %d, want %d", len(words), tt.want)
			}
			if words[0] != Magic {
				t.Errorf("words[0] = %#x, want %#x", words[0], Magic)
			}
		})
	}
}

func TestStageString(t *testing.T) {
	if got := Vertex.String(); got != "vertex" {
		t.Errorf("Vertex.String() = %q", got)
	}
	if got := Fragment.String(); got != "fragment" {
		t.Errorf("Fragment.String() = %q", got)
	}
	if got := Stage(9).String(); got != "stage(9)" {
		t.Errorf("Stage(9).String() = %q", got)
	}
}

func TestEmbeddedSources(t *testing.T) {
	for name, src := range map[string]string{
		"vertex":   triangleVertexWGSL,
		"fragment": triangleFragmentWGSL,
	} {
		if !strings.Contains(src, "fn "+EntryPoint+"(") {
			t.Errorf("%s source has no %q entry point", name, EntryPoint)
		}
	}
	if !strings.Contains(BlitWGSL, "fn vs_main(") || !strings.Contains(BlitWGSL, "fn fs_main(") {
		t.Error("blit source is missing vs_main or fs_main")
	}
}

func TestTriangleCompiles(t *testing.T) {
	vs, fs, err := Triangle()
	if err != nil {
		if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("Triangle() error: %v", err)
	}

	for _, b := range [][]byte{vs, fs} {
		if _, err := Words(b); err != nil {
			t.Errorf("compiled blob is not valid SPIR-V: %v", err)
		}
	}

	// Second call returns the cached result.
	vs2, _, _ := Triangle()
	if &vs2[0] != &vs[0] {
		t.Error("Triangle() recompiled on second call")
	}
}
