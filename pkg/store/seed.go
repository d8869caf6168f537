// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

// DecodeRecords reads a JSON array of records. Attribute values may be
// numbers or business labels such as "HIGH".
func DecodeRecords(r io.Reader) ([]overlap.Record, error) {
	var records []overlap.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, errors.Wrap(err, "failed to decode records")
	}
	return records, nil
}

// LoadRecordsFile reads a JSON records file.
func LoadRecordsFile(path string) ([]overlap.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open records file %s", path)
	}
	defer f.Close()
	return DecodeRecords(f)
}

// SeedFromFile imports a JSON records file into the store.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	records, err := LoadRecordsFile(path)
	if err != nil {
		return 0, err
	}
	n, err := s.ImportRecords(ctx, records)
	if err != nil {
		return 0, err
	}
	s.log.Infow("Imported seed records", "path", path, "count", n)
	return n, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
