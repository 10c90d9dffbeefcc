package simulation

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var _ mat.Matrix = (*RateMatrix)(nil)

// RateMatrix is a dense vehicle × base-station data rate matrix.
//
// Unlike mat.Dense it keeps its shape when either dimension is zero, so the
// invariant rows == len(vehicles) and cols == len(stations) always holds.
type RateMatrix struct {
	rows, cols int
	data       []float64
}

// NewRateMatrix allocates a zeroed rows × cols matrix.
func NewRateMatrix(rows, cols int) *RateMatrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("simulation: negative matrix dimension %d×%d", rows, cols))
	}
	return &RateMatrix{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}
}

// Dims returns the number of vehicle rows and base station columns.
func (m *RateMatrix) Dims() (r, c int) {
	return m.rows, m.cols
}

// At returns the data rate between vehicle slot i and station slot j.
func (m *RateMatrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	return m.data[i*m.cols+j]
}

// T returns the transpose view of the matrix.
func (m *RateMatrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// Row returns a copy of the rates of vehicle slot i.
func (m *RateMatrix) Row(i int) []float64 {
	if i < 0 || i >= m.rows {
		panic(mat.ErrRowAccess)
	}
	row := make([]float64, m.cols)
	copy(row, m.data[i*m.cols:(i+1)*m.cols])
	return row
}

// Clone returns a deep copy of the matrix.
func (m *RateMatrix) Clone() *RateMatrix {
	c := &RateMatrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(c.data, m.data)
	return c
}

// Dense converts the matrix to a gonum Dense. It returns nil for an empty
// matrix since mat.Dense cannot represent zero-sized shapes.
func (m *RateMatrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return mat.NewDense(m.rows, m.cols, data)
}

// set is only used by the engine while filling a fresh matrix.
func (m *RateMatrix) set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// String returns a formatted representation for logging.
func (m *RateMatrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%.3f", m.At(i, j))
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
