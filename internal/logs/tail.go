// Package logs reads the daemon log file for CLI consumers. Reads are
// offset-based so a follower can poll without rereading the whole file.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Options controls one Tail call.
type Options struct {
	// Offset is the byte position to resume from. Negative means "the last
	// Limit lines of the file".
	Offset int64
	// Limit caps how many trailing lines a negative-offset read returns.
	Limit int
	// Follow keeps the call open up to Wait when no new lines exist yet.
	Follow bool
	Wait   time.Duration
}

// Result carries the lines read and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

const pollInterval = 250 * time.Millisecond

// Tail reads log lines according to opts. A missing file is not an error;
// it yields no lines and offset zero so the caller can retry later.
func Tail(ctx context.Context, path string, opts Options) (Result, error) {
	if opts.Offset < 0 {
		res, err := tailEnd(path, opts.Limit)
		if err != nil {
			return res, err
		}
		if opts.Follow && opts.Wait > 0 && len(res.Lines) == 0 {
			return pollForward(ctx, path, res.Offset, opts.Wait)
		}
		return res, nil
	}

	lines, offset, err := readForward(path, opts.Offset)
	if err != nil {
		return Result{Offset: opts.Offset}, err
	}
	res := Result{Lines: lines, Offset: offset}
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return pollForward(ctx, path, offset, opts.Wait)
	}
	return res, nil
}

// tailEnd returns the last limit lines and the end-of-file offset.
func tailEnd(path string, limit int) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Result{}, fmt.Errorf("seek log file: %w", err)
		}
		return Result{Offset: end}, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Result{}, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, count)
	for i := 0; i < count; i++ {
		if count == limit {
			lines[i] = ring[(next+i)%limit]
		} else {
			lines[i] = ring[i]
		}
	}
	return Result{Lines: lines, Offset: end}, nil
}

// readForward reads everything after offset. An offset past the current end
// (a truncated or rotated file) restarts from the end.
func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = info.Size()
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, end, nil
}

func pollForward(ctx context.Context, path string, offset int64, wait time.Duration) (Result, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		lines, newOffset, err := readForward(path, offset)
		if err != nil {
			return Result{Offset: offset}, err
		}
		if len(lines) > 0 || time.Now().After(deadline) {
			return Result{Lines: lines, Offset: newOffset}, nil
		}
		select {
		case <-ctx.Done():
			return Result{Offset: newOffset}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
