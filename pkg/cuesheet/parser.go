package cuesheet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrSyntax CUE 文本无法解析
var ErrSyntax = errors.New("cue sheet syntax error")

var (
	fileRegex      = regexp.MustCompile(`(?i)^FILE\s+(?:"([^"]*)"|(\S+))`)
	trackRegex     = regexp.MustCompile(`(?i)^TRACK\s+(\d+)\s+\S+`)
	titleRegex     = regexp.MustCompile(`(?i)^TITLE\s+(?:"([^"]*)"|(.*))$`)
	performerRegex = regexp.MustCompile(`(?i)^PERFORMER\s+(?:"([^"]*)"|(.*))$`)
	indexRegex     = regexp.MustCompile(`(?i)^INDEX\s+(\d+)\s+(\d+):(\d{1,2}):(\d{1,2})$`)
	remRegex       = regexp.MustCompile(`(?i)^REM\s+(GENRE|DATE)\s+(?:"([^"]*)"|(.*))$`)
)

// quoted 取出带引号或不带引号的值
func quoted(matches []string, first int) string {
	if matches[first] != "" {
		return matches[first]
	}
	return strings.TrimSpace(matches[first+1])
}

// parseIndexTime 将 MM:SS:FF 解析为 Index
func parseIndexTime(number, minutes, seconds, frames string) (Index, error) {
	var (
		idx Index
		err error
	)
	if idx.Number, err = strconv.Atoi(number); err != nil {
		return idx, err
	}
	if idx.Minutes, err = strconv.Atoi(minutes); err != nil {
		return idx, err
	}
	if idx.Seconds, err = strconv.Atoi(seconds); err != nil {
		return idx, err
	}
	if idx.Frames, err = strconv.Atoi(frames); err != nil {
		return idx, err
	}
	if idx.Seconds > 59 {
		return idx, fmt.Errorf("seconds out of range: %d", idx.Seconds)
	}
	if idx.Frames >= FramesPerSecond {
		return idx, fmt.Errorf("frames out of range: %d", idx.Frames)
	}
	return idx, nil
}

// Parse 解析已经解码为 UTF-8 的 CUE 文本
func Parse(r io.Reader) (*Sheet, error) {
	sheet := &Sheet{}
	var (
		currentTrack *Track
		pendingFile  string
		lineNo       int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if matches := fileRegex.FindStringSubmatch(line); matches != nil {
			pendingFile = quoted(matches, 1)
			continue
		}
		if matches := trackRegex.FindStringSubmatch(line); matches != nil {
			if currentTrack != nil {
				sheet.Tracks = append(sheet.Tracks, *currentTrack)
			}
			num, err := strconv.Atoi(matches[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid track number: %v", ErrSyntax, lineNo, err)
			}
			currentTrack = &Track{Number: num, File: pendingFile}
			pendingFile = ""
			continue
		}
		if matches := titleRegex.FindStringSubmatch(line); matches != nil {
			if currentTrack != nil {
				currentTrack.Title = quoted(matches, 1)
			} else {
				sheet.Title = quoted(matches, 1)
			}
			continue
		}
		if matches := performerRegex.FindStringSubmatch(line); matches != nil {
			if currentTrack != nil {
				currentTrack.Performer = quoted(matches, 1)
			} else {
				sheet.Performer = quoted(matches, 1)
			}
			continue
		}
		if matches := indexRegex.FindStringSubmatch(line); matches != nil {
			if currentTrack == nil {
				return nil, fmt.Errorf("%w: line %d: INDEX outside of TRACK", ErrSyntax, lineNo)
			}
			idx, err := parseIndexTime(matches[1], matches[2], matches[3], matches[4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, err)
			}
			currentTrack.Indices = append(currentTrack.Indices, idx)
			continue
		}
		if matches := remRegex.FindStringSubmatch(line); matches != nil && currentTrack == nil {
			switch strings.ToUpper(matches[1]) {
			case "GENRE":
				sheet.Genre = quoted(matches, 2)
			case "DATE":
				sheet.Date = quoted(matches, 2)
			}
		}
		// 其余命令 (CATALOG, FLAGS, ISRC, PREGAP 等) 对切割没有影响
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if currentTrack != nil {
		sheet.Tracks = append(sheet.Tracks, *currentTrack)
	}
	if len(sheet.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks found", ErrSyntax)
	}
	return sheet, nil
}
