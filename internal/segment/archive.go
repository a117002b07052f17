package segment

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/loghaan/cablewatch/internal/log"
)

// Archive is the flat directory of Segments under INGEST_DATADIR. It is
// append-only from the Recorder's viewpoint and read-only from every
// consumer; no locking is performed.
type Archive struct {
	Dir string
}

// New returns an Archive rooted at dir.
func New(dir string) Archive {
	return Archive{Dir: dir}
}

// List enumerates Segments ordered by Begin. Lexicographic sort on
// basename is equivalent to sorting by Begin given the fixed filename
// format. A "<basename>.hole" sibling overwrites the bare entry so the
// returned Segment has Hole=true — matching glob order where the longer
// ".hole" name always sorts after its bare counterpart.
//
// Files that fail to parse are skipped and logged, not fatal to the
// whole enumeration: a single corrupt/foreign filename should not blind
// every consumer to the rest of the archive.
func (a Archive) List() ([]Segment, error) {
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var basenames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match("segment_*.ts*", e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			basenames = append(basenames, e.Name())
		}
	}
	sort.Strings(basenames)

	byBegin := make(map[int64]Segment)
	var order []int64
	for _, bn := range basenames {
		seg, err := Parse(filepath.Join(a.Dir, bn))
		if err != nil {
			log.WithComponent("segment").Warn().Err(err).Str("file", bn).Msg("skipping unparsable archive entry")
			continue
		}
		key := seg.Begin.UnixNano()
		if _, seen := byBegin[key]; !seen {
			order = append(order, key)
		}
		byBegin[key] = seg
	}

	out := make([]Segment, 0, len(order))
	for _, k := range order {
		out = append(out, byBegin[k])
	}
	return out, nil
}
