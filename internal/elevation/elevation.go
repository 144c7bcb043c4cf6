// Package elevation samples integer elevation values from a directory
// of GeoTIFF rasters, locating the covering tile via an R-tree spatial
// index and caching opened datasets by path.
package elevation

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/tidwall/rtree"
)

// ErrCoordNotFound is returned when no indexed raster tile covers the
// requested coordinate.
var ErrCoordNotFound = errors.New("coordinate not found")

// Map is a read-only, process-wide elevation lookup built once at
// startup from every *.tif file under a directory. It is safe for
// concurrent use: the index is immutable after construction, and
// opened datasets are guarded per path.
type Map struct {
	tree rtree.RTreeG[string]

	mu       sync.Mutex
	datasets map[string]*datasetHandle
}

type datasetHandle struct {
	mu      sync.Mutex
	dataset *godal.Dataset
}

// New scans dir for *.tif rasters and indexes each one's world-space
// bounding rectangle. A missing directory yields an empty, always-miss
// map rather than an error — elevation data is optional.
func New(dir string) (*Map, error) {
	m := &Map{datasets: make(map[string]*datasetHandle)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading elevation directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tif") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		bottomLeft, topRight, err := rasterBounds(path)
		if err != nil {
			return nil, fmt.Errorf("reading bounds of %s: %w", path, err)
		}
		m.tree.Insert(bottomLeft, topRight, path)
	}

	return m, nil
}

func rasterBounds(path string) (bottomLeft, topRight [2]float64, err error) {
	ds, err := godal.Open(path)
	if err != nil {
		return bottomLeft, topRight, err
	}
	defer ds.Close()

	gt, err := ds.GeoTransform()
	if err != nil {
		return bottomLeft, topRight, err
	}
	structure := ds.Structure()
	xsize, ysize := float64(structure.SizeX), float64(structure.SizeY)

	ulx, xres, uly, yres := gt[0], gt[1], gt[3], gt[5]
	lrx := ulx + xsize*xres
	lry := uly + ysize*yres

	return [2]float64{ulx, lry}, [2]float64{lrx, uly}, nil
}

// Lookup returns the integer elevation at (lng,lat) by locating the
// covering raster tile (ties broken by index iteration order) and
// sampling it with nearest-neighbor resampling.
func (m *Map) Lookup(lng, lat float64) (int64, error) {
	path, ok := m.coveringTile(lng, lat)
	if !ok {
		return 0, ErrCoordNotFound
	}

	handle := m.handleFor(path)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.dataset == nil {
		ds, err := godal.Open(path)
		if err != nil {
			return 0, fmt.Errorf("opening %s: %w", path, err)
		}
		handle.dataset = ds
	}

	return sample(handle.dataset, lng, lat)
}

func (m *Map) coveringTile(lng, lat float64) (string, bool) {
	point := [2]float64{lng, lat}
	var found string
	var ok bool
	m.tree.Search(point, point, func(_, _ [2]float64, data string) bool {
		found, ok = data, true
		return false // stop at first match
	})
	return found, ok
}

func (m *Map) handleFor(path string) *datasetHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, exists := m.datasets[path]
	if !exists {
		h = &datasetHandle{}
		m.datasets[path] = h
	}
	return h
}

func sample(ds *godal.Dataset, lng, lat float64) (int64, error) {
	gt, err := ds.GeoTransform()
	if err != nil {
		return 0, err
	}

	x := int(math.Floor((lng - gt[0]) / gt[1]))
	y := int(math.Floor((lat - gt[3]) / gt[5]))

	bands := ds.Bands()
	if len(bands) == 0 {
		return 0, fmt.Errorf("dataset has no raster bands")
	}

	buf := make([]int32, 1)
	if err := bands[0].Read(x, y, buf, 1, 1, godal.Resampling(godal.NearestNeighbor)); err != nil {
		return 0, fmt.Errorf("sampling pixel (%d,%d): %w", x, y, err)
	}
	return int64(buf[0]), nil
}
