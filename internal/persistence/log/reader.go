package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"mobcraft.ai/internal/sim/world"
)

const maxLine = 16 << 20

// TraceFiles lists the goal trace files under dir in chronological order.
func TraceFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "goals-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadTraces decodes every entry of one trace file, in order. Iteration stops
// at the first error returned by fn.
func ReadTraces(path string, fn func(world.TickTrace) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return DecodeTraces(f, fn)
}

// DecodeTraces reads zstd-compressed JSONL traces from r. A truncated final
// frame (a writer that crashed mid-hour) ends the stream without error.
func DecodeTraces(r io.Reader, fn func(world.TickTrace) error) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var t world.TickTrace
		if err := json.Unmarshal(sc.Bytes(), &t); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && err != io.ErrUnexpectedEOF {
		return err
	}
	return nil
}
