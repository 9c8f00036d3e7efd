package split

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/yleoer/splitalbums/pkg/cuesheet"
)

// End 轨道的结束位置；Open 为 true 时表示切到源文件末尾，需要探测时长
type End struct {
	Seconds float64 `json:"seconds"`
	Open    bool    `json:"open"`
}

// OpenEnd 结束位置需要通过探测源文件时长得到
var OpenEnd = End{Open: true}

// At 返回确定的结束位置
func At(sec float64) End {
	return End{Seconds: sec}
}

func (e End) String() string {
	if e.Open {
		return "EOF"
	}
	return cuesheet.FormatSeconds(e.Seconds, cuesheet.PrecisionFrame)
}

// Boundary 单个轨道解析后的边界
type Boundary struct {
	Number    int
	Source    string // CUE 中声明的物理文件名
	Performer string
	Start     float64
	End       End
}

// Validate 检查 CUE 的结构不变量
func Validate(sheet *cuesheet.Sheet) error {
	if sheet == nil || len(sheet.Tracks) == 0 {
		return fmt.Errorf("%w: %w", ErrMalformedSheet, ErrNoTracks)
	}
	for i, track := range sheet.Tracks {
		if track.Number != i+1 {
			return fmt.Errorf("%w: %w: position %d has track %d", ErrMalformedSheet, ErrTrackNumber, i+1, track.Number)
		}
		if len(track.Indices) < 1 || len(track.Indices) > 2 {
			return fmt.Errorf("%w: %w: track %d has %d", ErrMalformedSheet, ErrInvalidIndexCount, track.Number, len(track.Indices))
		}
		for j := 1; j < len(track.Indices); j++ {
			if track.Indices[j].Seconds() < track.Indices[j-1].Seconds() {
				return fmt.Errorf("%w: %w: track %d index %s before %s", ErrMalformedSheet, ErrIndexOrder,
					track.Number, track.Indices[j], track.Indices[j-1])
			}
		}
	}
	if sheet.Tracks[0].File == "" {
		return fmt.Errorf("%w: %w 1", ErrMalformedSheet, ErrMissingSource)
	}
	return nil
}

// resolveState 从左到右扫描时携带的状态：最近一次声明的物理文件
type resolveState struct {
	source     string
	boundaries []Boundary
}

func (s resolveState) step(sheet *cuesheet.Sheet, starts []float64, i int) resolveState {
	track := sheet.Tracks[i]
	if track.File != "" {
		s.source = track.File
	}

	end := OpenEnd
	if last := i == len(sheet.Tracks)-1; !last && sheet.Tracks[i+1].File == "" {
		end = At(starts[i+1])
	}

	s.boundaries = append(s.boundaries, Boundary{
		Number:    track.Number,
		Source:    s.source,
		Performer: lo.Ternary(track.Performer != "", track.Performer, sheet.Performer),
		Start:     starts[i],
		End:       end,
	})
	return s
}

// Resolve 计算每个轨道的源文件、艺术家与起止切点
func Resolve(sheet *cuesheet.Sheet) ([]Boundary, error) {
	if err := Validate(sheet); err != nil {
		return nil, err
	}

	starts := make([]float64, len(sheet.Tracks))
	for i, track := range sheet.Tracks {
		start, err := CutPoint(track.Indices)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", track.Number, err)
		}
		starts[i] = start
	}

	state := resolveState{boundaries: make([]Boundary, 0, len(sheet.Tracks))}
	for i := range sheet.Tracks {
		state = state.step(sheet, starts, i)
	}
	return state.boundaries, nil
}
