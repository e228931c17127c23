package worker

import "bytes"

// LineFramer reassembles line-delimited records from arbitrarily chunked
// reads. A record is only surfaced once its terminating line break has
// arrived; the unterminated tail is carried into the next Push. The
// reconstructed record sequence is therefore independent of how the
// transport chunks bytes.
type LineFramer struct {
	carry []byte
}

// Push consumes one chunk and returns the complete records it finishes.
// Trailing carriage returns are trimmed and empty segments are skipped.
func (f *LineFramer) Push(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}
	f.carry = append(f.carry, chunk...)

	var records [][]byte
	for {
		idx := bytes.IndexByte(f.carry, '\n')
		if idx < 0 {
			break
		}
		segment := bytes.TrimSuffix(f.carry[:idx], []byte{'\r'})
		if len(segment) > 0 {
			record := make([]byte, len(segment))
			copy(record, segment)
			records = append(records, record)
		}
		f.carry = f.carry[idx+1:]
	}
	if len(f.carry) == 0 {
		f.carry = nil
	}
	return records
}

// Flush returns the unterminated tail, if any. Called at end of stream;
// the tail was never completed and is not a record.
func (f *LineFramer) Flush() []byte {
	tail := f.carry
	f.carry = nil
	return tail
}
