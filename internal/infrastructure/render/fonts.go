package render

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// fontSet caches parsed fonts and sized faces. The bundled Go fonts are used
// unless a custom TrueType file is configured.
type fontSet struct {
	bold    *truetype.Font
	regular *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	size float64
}

func loadFonts(customPath string) (*fontSet, error) {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled bold font: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled regular font: %w", err)
	}

	if customPath != "" {
		raw, err := os.ReadFile(customPath)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", customPath, err)
		}
		custom, err := truetype.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", customPath, err)
		}
		bold, regular = custom, custom
	}

	return &fontSet{bold: bold, regular: regular, faces: map[faceKey]font.Face{}}, nil
}

func (f *fontSet) face(size float64, bold bool) font.Face {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := faceKey{bold: bold, size: size}
	if face, ok := f.faces[key]; ok {
		return face
	}
	src := f.regular
	if bold {
		src = f.bold
	}
	face := truetype.NewFace(src, &truetype.Options{Size: size, Hinting: font.HintingFull})
	f.faces[key] = face
	return face
}
