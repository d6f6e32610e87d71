/*
 * Copyright The OpenTelemetry Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package acklog

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

const activeFileName = "quiver.ack"

var rotatedFileRE = regexp.MustCompile(`^quiver\.ack\.(\d+)$`)

// rotatedFile is one rotated (closed, immutable) segment of the ack log.
type rotatedFile struct {
	id   int
	path string
}

// listRotatedFiles returns dir's rotated files in ascending rotation-id
// order -- the order recovery must replay them in.
func listRotatedFiles(dir string) ([]rotatedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, werror.Wrap(err)
	}

	var out []rotatedFile
	for _, e := range entries {
		m := rotatedFileRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, rotatedFile{id: id, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

// PurgeBefore deletes every rotated file whose maximum referenced segment
// sequence is strictly less than oldestIncompleteSegment -- the lowest
// segment sequence any live subscriber has not yet fully consumed. The
// active file is never purged.
func (w *Writer) PurgeBefore(oldestIncompleteSegment uint64) error {
	files, err := listRotatedFiles(w.dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		_, maxSeq, err := readEntriesFromFile(f.path)
		if err != nil {
			return werror.WrapWithMsg(err, "acklog: purge: reading "+f.path)
		}
		if maxSeq < oldestIncompleteSegment {
			if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
				return werror.Wrap(err)
			}
		}
	}
	return nil
}
