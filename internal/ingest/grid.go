package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"qcviz/internal/dataset"
)

// maxGridCells bounds the flattened table so a large grid cannot exhaust memory.
const maxGridCells = 20_000_000

// GridDecoder decodes a gridded binary file into named, dimensioned variables.
type GridDecoder interface {
	Decode(data []byte) (*Grid, error)
}

// Dimension is a named grid axis.
type Dimension struct {
	Name string
	Size int
}

// Variable is one gridded variable. Cells are stored row-major over Dims, one entry per
// grid point; scalars have no dims and one cell. Null cells are "".
type Variable struct {
	Name  string
	Dims  []string
	Cells []string
	Units string
}

// Grid is a decoded gridded file.
type Grid struct {
	Dims []Dimension
	Vars []Variable
}

func (g *Grid) dimSizes() map[string]int {
	sizes := make(map[string]int, len(g.Dims))
	for _, d := range g.Dims {
		sizes[d.Name] = d.Size
	}
	return sizes
}

func isDimCoord(v Variable) bool {
	return len(v.Dims) == 1 && v.Dims[0] == v.Name
}

// Flatten lays the grid out as a table: one row per point of the cartesian product of the
// dimensions the non-coordinate variables use, dimension columns first, then every
// non-coordinate variable broadcast along the dimensions it lacks. Variables whose units
// follow the "<unit> since <epoch>" convention are rendered as RFC 3339 timestamps.
func (g *Grid) Flatten() (*dataset.Dataset, error) {
	sizes := g.dimSizes()
	coords := make(map[string]Variable)
	var columns []Variable
	for _, v := range g.Vars {
		want := 1
		for _, d := range v.Dims {
			n, ok := sizes[d]
			if !ok {
				return nil, fmt.Errorf("variable %q uses unknown dimension %q", v.Name, d)
			}
			want *= n
		}
		if len(v.Cells) != want {
			return nil, fmt.Errorf("variable %q has %d values, dimensions imply %d", v.Name, len(v.Cells), want)
		}
		v = decodeCFTime(v)
		if isDimCoord(v) {
			coords[v.Name] = v
			continue
		}
		columns = append(columns, v)
	}

	used := make(map[string]bool)
	for _, v := range columns {
		for _, d := range v.Dims {
			used[d] = true
		}
	}
	var index []Dimension
	for _, d := range g.Dims {
		if used[d.Name] || len(columns) == 0 {
			index = append(index, d)
		}
	}

	width := len(index) + len(columns)
	nrows := 1
	for _, d := range index {
		if d.Size > 0 && nrows > maxGridCells/d.Size {
			return nil, fmt.Errorf("grid too large to flatten (dimension %q of %d overflows %d cells)", d.Name, d.Size, maxGridCells)
		}
		nrows *= d.Size
	}
	if nrows*width > maxGridCells {
		return nil, fmt.Errorf("grid too large to flatten (%d rows)", nrows)
	}

	headers := make([]string, 0, len(index)+len(columns))
	for _, d := range index {
		headers = append(headers, d.Name)
	}
	for _, v := range columns {
		headers = append(headers, v.Name)
	}

	pos := make(map[string]int, len(index))
	rows := make([][]string, nrows)
	for r := 0; r < nrows; r++ {
		rem := r
		for i := len(index) - 1; i >= 0; i-- {
			d := index[i]
			pos[d.Name] = rem % d.Size
			rem /= d.Size
		}
		row := make([]string, 0, len(headers))
		for _, d := range index {
			if c, ok := coords[d.Name]; ok {
				row = append(row, c.Cells[pos[d.Name]])
			} else {
				row = append(row, strconv.Itoa(pos[d.Name]))
			}
		}
		for _, v := range columns {
			offset := 0
			for _, d := range v.Dims {
				offset = offset*sizes[d] + pos[d]
			}
			row = append(row, v.Cells[offset])
		}
		rows[r] = row
	}
	return &dataset.Dataset{Headers: headers, Rows: rows}, nil
}

var cfUnits = map[string]time.Duration{
	"second":  time.Second,
	"seconds": time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"s":       time.Second,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"hr":      time.Hour,
	"h":       time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
	"d":       24 * time.Hour,
}

// parseCFUnits splits "<unit> since <epoch>" into a step and a reference time.
func parseCFUnits(units string) (time.Duration, time.Time, bool) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, false
	}
	step, ok := cfUnits[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return 0, time.Time{}, false
	}
	epoch, err := dateparse.ParseIn(strings.TrimSpace(parts[1]), time.UTC)
	if err != nil {
		return 0, time.Time{}, false
	}
	return step, epoch, true
}

func decodeCFTime(v Variable) Variable {
	step, epoch, ok := parseCFUnits(v.Units)
	if !ok {
		return v
	}
	cells := make([]string, len(v.Cells))
	for i, c := range v.Cells {
		n, ok := dataset.ParseFloat(c)
		if !ok || math.IsInf(n, 0) {
			if !dataset.IsNull(c) {
				return v
			}
			continue
		}
		offset := time.Duration(n * float64(step))
		cells[i] = epoch.Add(offset).UTC().Format(time.RFC3339)
	}
	v.Cells = cells
	return v
}
