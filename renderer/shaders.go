package renderer

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed shaders/*.vert shaders/*.frag shaders/*.glsl
var embeddedShaders embed.FS

// Programs lists every GPU program the scene materials draw with.
var Programs = []string{"basic", "matcap", "overlay", "smoke"}

// ShaderSource is the expanded GLSL of one program.
type ShaderSource struct {
	Vertex   string
	Fragment string
}

var errIncludeCycle = errors.New("include cycle")

// EmbeddedShaders returns the sources compiled into the binary.
func EmbeddedShaders() fs.FS {
	sub, err := fs.Sub(embeddedShaders, "shaders")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadShaders reads every program in Programs from fsys.
func LoadShaders(fsys fs.FS) (map[string]ShaderSource, error) {
	out := make(map[string]ShaderSource, len(Programs))
	for _, name := range Programs {
		src, err := LoadShader(fsys, name)
		if err != nil {
			return nil, err
		}
		out[name] = src
	}
	return out, nil
}

// LoadShader reads name.vert and name.frag and expands their
// "#include <chunk>" lines from chunk.glsl.
func LoadShader(fsys fs.FS, name string) (ShaderSource, error) {
	vert, err := readShader(fsys, name+".vert", nil)
	if err != nil {
		return ShaderSource{}, fmt.Errorf("program %q: %w", name, err)
	}
	frag, err := readShader(fsys, name+".frag", nil)
	if err != nil {
		return ShaderSource{}, fmt.Errorf("program %q: %w", name, err)
	}
	return ShaderSource{Vertex: vert, Fragment: frag}, nil
}

func readShader(fsys fs.FS, file string, stack []string) (string, error) {
	for _, s := range stack {
		if s == file {
			return "", fmt.Errorf("%s: %w", strings.Join(append(stack, file), " -> "), errIncludeCycle)
		}
	}
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return "", err
	}
	stack = append(stack, file)

	var b strings.Builder
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		chunk, ok := parseInclude(text)
		if !ok {
			b.WriteString(text)
			b.WriteByte('\n')
			continue
		}
		if chunk == "" {
			return "", fmt.Errorf("%s:%d: malformed include", file, line)
		}
		body, err := readShader(fsys, chunk+".glsl", stack)
		if err != nil {
			return "", fmt.Errorf("%s:%d: %w", file, line, err)
		}
		b.WriteString(body)
	}
	return b.String(), sc.Err()
}

// parseInclude recognises `#include <name>`. ok is true for any #include
// line; name is empty when the line is malformed.
func parseInclude(line string) (name string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), "#include")
	if !found {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 3 || rest[0] != '<' || rest[len(rest)-1] != '>' {
		return "", true
	}
	return strings.TrimSpace(rest[1 : len(rest)-1]), true
}
