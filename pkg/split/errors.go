package split

import "errors"

// ErrMalformedSheet 所有结构性错误的根，切割开始之前即可判定
var ErrMalformedSheet = errors.New("malformed cue sheet")

var (
	ErrNoTracks          = errors.New("cue sheet has no tracks")
	ErrTrackNumber       = errors.New("track numbers must be contiguous starting at 1")
	ErrIndexOrder        = errors.New("index times must be non-decreasing")
	ErrInvalidIndexCount = errors.New("track must have one or two indices")
	ErrMissingSource     = errors.New("no audio file declared before track")
)
