// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

const recordColumns = `id, opportunity_name, partner_name, partner_size_label, ae_name,
	has_opportunity, opportunity_size, relationship_status, engagement_score, opportunity_stage, winnability,
	has_partner, opportunity_relevance, relationship_strength, recent_deal_support, stickiness,
	logo_potential, partner_champion`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (overlap.Record, error) {
	var (
		rec                overlap.Record
		hasOpp, hasPartner bool
		logo, champion     bool
		opp                overlap.OpportunityAttributes
		partner            overlap.PartnerAttributes
	)
	err := row.Scan(&rec.ID, &rec.OpportunityName, &rec.PartnerName, &rec.PartnerSizeLabel, &rec.AEName,
		&hasOpp, &opp.Size, &opp.RelationshipStatus, &opp.Engagement, &opp.Stage, &opp.Winnability,
		&hasPartner, &partner.Relevance, &partner.RelationshipStrength, &partner.RecentDealSupport, &partner.Stickiness,
		&logo, &champion)
	if err != nil {
		return overlap.Record{}, err
	}
	if hasOpp {
		rec.Opportunity = &opp
	}
	if hasPartner {
		rec.Partner = &partner
	}
	rec.LogoPotential = logo
	rec.PartnerChampion = champion
	return rec, nil
}

// ListRecords returns all records ordered by id.
func (s *Store) ListRecords(ctx context.Context) ([]overlap.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM crossbeam_records ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list records")
	}
	defer rows.Close()

	var out []overlap.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate records")
}

// GetRecord returns one record or ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, id string) (*overlap.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM crossbeam_records WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "record %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get record %s", id)
	}
	return &rec, nil
}

// UpsertRecord inserts or replaces a record.
func (s *Store) UpsertRecord(ctx context.Context, rec overlap.Record) error {
	if rec.ID == "" {
		return invalidf("record id is required")
	}
	return upsertRecord(ctx, s.db, rec)
}

// ImportRecords upserts records in one transaction and returns how many were
// written. Records without an id are skipped.
func (s *Store) ImportRecords(ctx context.Context, records []overlap.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin import")
	}
	defer func() { _ = tx.Rollback() }()

	n := 0
	for _, rec := range records {
		if rec.ID == "" {
			s.log.Warnw("Skipping record without id during import", "opportunity", rec.OpportunityName)
			continue
		}
		if err := upsertRecord(ctx, tx, rec); err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit import")
	}
	return n, nil
}

// DeleteRecord removes a record.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM crossbeam_records WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete record %s", id)
	}
	return mustAffect(res, "record", id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertRecord(ctx context.Context, db execer, rec overlap.Record) error {
	opp := rec.Opportunity
	if opp == nil {
		opp = &overlap.OpportunityAttributes{}
	}
	partner := rec.Partner
	if partner == nil {
		partner = &overlap.PartnerAttributes{}
	}
	_, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO crossbeam_records (`+recordColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		rec.ID, rec.OpportunityName, rec.PartnerName, rec.PartnerSizeLabel, rec.AEName,
		boolInt(rec.Opportunity != nil), float64(opp.Size), float64(opp.RelationshipStatus), float64(opp.Engagement), float64(opp.Stage), float64(opp.Winnability),
		boolInt(rec.Partner != nil), float64(partner.Relevance), float64(partner.RelationshipStrength), float64(partner.RecentDealSupport), float64(partner.Stickiness),
		boolInt(rec.LogoPotential), boolInt(rec.PartnerChampion))
	return errors.Wrapf(err, "failed to upsert record %s", rec.ID)
}

func mustAffect(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "%s %s", kind, id)
	}
	return nil
}
