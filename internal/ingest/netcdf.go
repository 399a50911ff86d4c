package ingest

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"qcviz/internal/dataset"
)

// NetCDFDecoder decodes classic and HDF5-based NetCDF files with go-native-netcdf.
type NetCDFDecoder struct{}

// memFile gives an in-memory upload the Close the decoder expects of a file.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

// Decode implements GridDecoder.
func (NetCDFDecoder) Decode(data []byte) (*Grid, error) {
	nc, err := netcdf.New(memFile{bytes.NewReader(data)})
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	grid := &Grid{}
	sizes := make(map[string]int)
	for _, name := range nc.ListDimensions() {
		n, ok := nc.GetDimension(name)
		if !ok {
			return nil, fmt.Errorf("dimension %q not readable", name)
		}
		grid.Dims = append(grid.Dims, Dimension{Name: name, Size: int(n)})
		sizes[name] = int(n)
	}

	for _, name := range nc.ListVariables() {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		cells, isString := flattenValues(v.Values, fillValue(v.Attributes))
		dims := append([]string(nil), v.Dimensions...)
		// Character arrays come back as strings with the length dimension folded in.
		if isString && len(dims) > 0 && len(cells)*sizes[dims[len(dims)-1]] == product(dims, sizes) {
			dims = dims[:len(dims)-1]
		}
		grid.Vars = append(grid.Vars, Variable{
			Name:  name,
			Dims:  dims,
			Cells: cells,
			Units: stringAttr(v.Attributes, "units"),
		})
	}
	return grid, nil
}

func product(dims []string, sizes map[string]int) int {
	n := 1
	for _, d := range dims {
		n *= sizes[d]
	}
	return n
}

func stringAttr(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func fillValue(attrs api.AttributeMap) *float64 {
	if attrs == nil {
		return nil
	}
	raw, ok := attrs.Get("_FillValue")
	if !ok {
		return nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice && rv.Len() > 0 {
		rv = rv.Index(0)
	}
	f, ok := toFloat(rv)
	if !ok {
		return nil
	}
	return &f
}

// flattenValues walks nested slices row-major and renders every leaf as a cell.
func flattenValues(values interface{}, fill *float64) ([]string, bool) {
	var cells []string
	isString := false
	var walk func(rv reflect.Value)
	walk = func(rv reflect.Value) {
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				walk(rv.Index(i))
			}
		case reflect.String:
			isString = true
			cells = append(cells, rv.String())
		case reflect.Interface, reflect.Ptr:
			if rv.IsNil() {
				cells = append(cells, "")
				return
			}
			walk(rv.Elem())
		default:
			f, ok := toFloat(rv)
			if !ok {
				cells = append(cells, fmt.Sprint(rv.Interface()))
				return
			}
			if math.IsNaN(f) || (fill != nil && f == *fill) {
				cells = append(cells, "")
				return
			}
			cells = append(cells, dataset.FormatFloat(f))
		}
	}
	if values != nil {
		walk(reflect.ValueOf(values))
	}
	return cells, isString
}

func toFloat(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}
