package heightmap

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Cache provides thread-safe caching of loaded height maps to avoid redundant disk reads.
//
// Maps are keyed by the exact path string passed to Load. Different paths to the
// same file (relative vs absolute) produce separate entries.
//
// # Memory Management
//
// Cached maps stay in memory until removed with Evict or Clear. A 1024×1024 map
// costs 8 MiB, so long-running servers handling many scans should evict.
type Cache struct {
	mu   sync.RWMutex
	maps map[string]HeightMap
}

// NewCache creates an empty cache, ready for concurrent use.
func NewCache() *Cache {
	return &Cache{
		maps: make(map[string]HeightMap),
	}
}

// Load returns the cached map for path, reading it from disk with Load on a miss.
func (c *Cache) Load(path string) (HeightMap, error) {
	c.mu.RLock()
	if h, ok := c.maps[path]; ok {
		c.mu.RUnlock()
		return h, nil
	}
	c.mu.RUnlock()

	h, err := Load(path)
	if err != nil {
		return HeightMap{}, err
	}

	c.mu.Lock()
	c.maps[path] = h
	c.mu.Unlock()

	return h, nil
}

// Evict removes path from the cache. Unknown paths are ignored.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.maps, path)
	c.mu.Unlock()
}

// Clear drops every cached map.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.maps = make(map[string]HeightMap)
	c.mu.Unlock()
}

// Len returns the number of cached maps.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.maps)
}

// Load reads a height map, choosing the parser from the file extension.
//
// Text extensions (.txt, .csv, .dat, .asc) are parsed with LoadText; anything
// else is decoded as an image with LoadImage.
func Load(path string) (HeightMap, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".csv", ".dat", ".asc":
		return LoadText(path)
	default:
		return LoadImage(path)
	}
}

// LoadText parses a numeric matrix, one row per line.
//
// Values may be separated by whitespace, commas or semicolons. Blank lines and
// lines starting with '#' are skipped.
//
// # Errors
//
//   - file cannot be opened or read
//   - a value is not a number
//   - rows differ in length (ErrRaggedRows)
//   - no rows at all (ErrEmpty)
func LoadText(path string) (HeightMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return HeightMap{}, fmt.Errorf("failed to open height map: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows [][]float64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t'
		})
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return HeightMap{}, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return HeightMap{}, fmt.Errorf("failed to read height map: %w", err)
	}

	h, err := FromRows(rows)
	if err != nil {
		return HeightMap{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// LoadImage decodes a PNG, JPEG or GIF and uses its luminance (0-255) as height.
func LoadImage(path string) (HeightMap, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return HeightMap{}, fmt.Errorf("failed to open image: %w", err)
	}
	return FromImage(img)
}

// FromImage converts an image to a HeightMap using its grayscale luminance.
func FromImage(img image.Image) (HeightMap, error) {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return HeightMap{}, ErrEmpty
	}
	data := make([]float64, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := y * gray.Stride
		for x := 0; x < b.Dx(); x++ {
			data = append(data, float64(gray.Pix[off+x*4]))
		}
	}
	return New(b.Dy(), b.Dx(), data)
}

// Info summarizes a loaded height map.
type Info struct {
	Rows     int     `json:"rows"`
	Cols     int     `json:"cols"`
	Square   bool    `json:"square"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Format   string  `json:"format"`
	FileSize int64   `json:"file_size_bytes"`
}

// LoadInfo loads path through the cache and describes it.
func LoadInfo(cache *Cache, path string) (*Info, error) {
	h, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "image"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".csv", ".dat", ".asc":
		format = "text"
	}

	rows, cols := h.Dims()
	return &Info{
		Rows:     rows,
		Cols:     cols,
		Square:   rows == cols,
		Min:      h.Min(),
		Max:      h.Max(),
		Format:   format,
		FileSize: stat.Size(),
	}, nil
}
