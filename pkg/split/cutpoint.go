package split

import (
	"fmt"

	"github.com/yleoer/splitalbums/pkg/cuesheet"
)

// CutPoint 按中点策略计算轨道的切点（秒）
func CutPoint(indices []cuesheet.Index) (float64, error) {
	switch len(indices) {
	case 1:
		return indices[0].Seconds(), nil
	case 2:
		return (indices[0].Seconds() + indices[1].Seconds()) / 2.0, nil
	default:
		return 0, fmt.Errorf("%w: %w: got %d", ErrMalformedSheet, ErrInvalidIndexCount, len(indices))
	}
}
