package ml

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ExportNpy writes x as <prefix>_x.npy and labels as an n×1 column <prefix>_y.npy
// under dir.
func ExportNpy(dir, prefix string, x *mat.Dense, labels []int) error {
	rows, _ := x.Dims()
	if rows != len(labels) {
		return fmt.Errorf("features and labels size mismatch")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	y := mat.NewDense(rows, 1, nil)
	for i, label := range labels {
		y.Set(i, 0, float64(label))
	}

	if err := writeNpy(filepath.Join(dir, prefix+"_x.npy"), x); err != nil {
		return err
	}
	return writeNpy(filepath.Join(dir, prefix+"_y.npy"), y)
}

func writeNpy(path string, m *mat.Dense) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := npyio.Write(dst, m); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return dst.Close()
}

// ReadNpy loads a matrix written by ExportNpy.
func ReadNpy(path string) (*mat.Dense, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	r, err := npyio.NewReader(src)
	if err != nil {
		return nil, err
	}
	var m mat.Dense
	if err := r.Read(&m); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &m, nil
}
