// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/moative/overlap-escalation/pkg/escalation"
)

const memberColumns = `id, name, designation, hierarchy, channel_id, webhook_url, email, max_message`

func scanMember(row rowScanner) (escalation.TeamMember, error) {
	var m escalation.TeamMember
	err := row.Scan(&m.ID, &m.Name, &m.Designation, &m.Hierarchy, &m.ChannelID, &m.WebhookURL, &m.Email, &m.MaxMessage)
	return m, err
}

func validateMember(m escalation.TeamMember) error {
	if m.Name == "" {
		return invalidf("member name is required")
	}
	if m.Hierarchy < 1 {
		return invalidf("hierarchy must be >= 1, got %d", m.Hierarchy)
	}
	if m.MaxMessage < 0 {
		return invalidf("max_message must be >= 0, got %d", m.MaxMessage)
	}
	return nil
}

// ListMembers returns the roster ordered by hierarchy, then id.
func (s *Store) ListMembers(ctx context.Context) ([]escalation.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM internal_team ORDER BY hierarchy, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list team members")
	}
	defer rows.Close()

	var out []escalation.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan team member")
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate team members")
}

// Hierarchy returns the roster grouped into ascending tiers.
func (s *Store) Hierarchy(ctx context.Context) ([]escalation.HierarchyLevel, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	return escalation.GroupByTier(members), nil
}

// GetMember returns one member or ErrNotFound.
func (s *Store) GetMember(ctx context.Context, id int64) (*escalation.TeamMember, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM internal_team WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "team member %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get team member %d", id)
	}
	return &m, nil
}

// AddMember inserts a member and returns it with its assigned id.
func (s *Store) AddMember(ctx context.Context, m escalation.TeamMember) (escalation.TeamMember, error) {
	if err := validateMember(m); err != nil {
		return m, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO internal_team (name, designation, hierarchy, channel_id, webhook_url, email, max_message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Designation, m.Hierarchy, m.ChannelID, m.WebhookURL, m.Email, m.MaxMessage)
	if err != nil {
		return m, errors.Wrap(err, "failed to add team member")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return m, errors.Wrap(err, "failed to read team member id")
	}
	m.ID = id
	return m, nil
}

// UpdateMember replaces the member with m.ID.
func (s *Store) UpdateMember(ctx context.Context, m escalation.TeamMember) error {
	if err := validateMember(m); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE internal_team SET name = ?, designation = ?, hierarchy = ?, channel_id = ?, webhook_url = ?, email = ?, max_message = ? WHERE id = ?`,
		m.Name, m.Designation, m.Hierarchy, m.ChannelID, m.WebhookURL, m.Email, m.MaxMessage, m.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to update team member %d", m.ID)
	}
	return mustAffect(res, "team member", itoa(m.ID))
}

// DeleteMember removes the member with id.
func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM internal_team WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete team member %d", id)
	}
	return mustAffect(res, "team member", itoa(id))
}
