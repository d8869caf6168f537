// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

// Weight is one row of the scoring weight table.
type Weight struct {
	Name    string          `json:"name"`
	Section overlap.Section `json:"type"`
	Weight  float64         `json:"weight"`
}

// GetWeights returns the weights of one section.
func (s *Store) GetWeights(ctx context.Context, section overlap.Section) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT parameter, weight FROM scoring_weights WHERE section = ?`, string(section))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s weights", section)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var w float64
		if err := rows.Scan(&name, &w); err != nil {
			return nil, errors.Wrap(err, "failed to scan weight")
		}
		out[name] = w
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate weights")
}

// ListWeights returns every weight ordered by section and name.
func (s *Store) ListWeights(ctx context.Context) ([]Weight, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT parameter, section, weight FROM scoring_weights ORDER BY section, parameter`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list weights")
	}
	defer rows.Close()

	var out []Weight
	for rows.Next() {
		var w Weight
		var section string
		if err := rows.Scan(&w.Name, &section, &w.Weight); err != nil {
			return nil, errors.Wrap(err, "failed to scan weight")
		}
		w.Section = overlap.Section(section)
		out = append(out, w)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate weights")
}

// SetWeights upserts the given weights. Attributes not mentioned keep their
// current weight. Unknown attributes and weights outside [0,1] are rejected.
func (s *Store) SetWeights(ctx context.Context, ws overlap.WeightSet) error {
	for section, m := range ws {
		for name, w := range m {
			if !overlap.IsKnownAttribute(section, name) {
				return invalidf("unknown %s attribute %q", section, name)
			}
			if w < 0 || w > 1 {
				return invalidf("weight of %s.%s must be within [0,1], got %v", section, name, w)
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin weight update")
	}
	defer func() { _ = tx.Rollback() }()
	for section, m := range ws {
		for name, w := range m {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO scoring_weights (parameter, section, weight) VALUES (?, ?, ?)`,
				name, string(section), w); err != nil {
				return errors.Wrapf(err, "failed to store weight %s.%s", section, name)
			}
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit weight update")
}
