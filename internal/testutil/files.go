package testutil

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/ironsheep/afm-tools-mcp/internal/heightmap"
)

// WriteMap saves h at path as a whitespace-separated text matrix with a
// comment header, the format exported by the scan software.
func WriteMap(t testing.TB, path string, h heightmap.HeightMap) {
	t.Helper()
	rows, cols := h.Dims()
	var sb strings.Builder
	sb.WriteString("# synthetic scan\n")
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(h.At(r, c), 'g', -1, 64))
		}
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
