// Copyright (C) 2026 ChronoDB, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package binrec

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error
)

func encoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		enc, encErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return enc, encErr
}

// CompressedSnapshot returns a zstd-compressed copy of the container's
// trimmed bytes (header plus written records), for transport to a
// peer that does not need to mutate the container further. It does
// not change the in-memory container or its on-wire layout; the
// receiver must decompress before parsing records.
func (c *Container) CompressedSnapshot() ([]byte, error) {
	e, err := encoder()
	if err != nil {
		return nil, err
	}
	return e.EncodeAll(c.TrimmedArray(), nil), nil
}

// DecompressSnapshot reverses CompressedSnapshot, returning the
// trimmed container bytes (header + records) that were compressed.
func DecompressSnapshot(compressed []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.DecodeAll(compressed, nil)
}
