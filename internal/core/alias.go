package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/address"
	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/model"
	"github.com/edvin/vpanel/internal/provision"
)

const aliasColumns = `id, aid, hid, active, source, target, created_at, updated_at, domain`

type AliasInput struct {
	VhostID int64
	Source  string
	Target  string
	Active  bool
}

type AliasService struct {
	db     DB
	runner provision.Runner
}

func NewAliasService(db DB, runner provision.Runner) *AliasService {
	return &AliasService{db: db, runner: runner}
}

// Create inserts an alias and, when configure is set, installs the
// forwarding on the mail host.
func (s *AliasService) Create(ctx context.Context, in AliasInput, configure bool) (*Result, error) {
	v, err := vhostLimits(ctx, s.db, in.VhostID)
	if err != nil {
		return nil, err
	}
	src := address.NormalizeAliasSource(in.Source, v.Domain)
	if err := s.checkSource(ctx, src, v.ID, 0); err != nil {
		return nil, err
	}

	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM valias WHERE hid = $1`, v.ID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count aliases for vhost %d: %w", v.ID, err)
	}
	if count >= v.Aliases {
		return nil, fieldError("hid", "This virtual host has reached its alias limit.")
	}

	a := &model.Alias{
		AccountID: v.AccountID,
		VhostID:   v.ID,
		Active:    in.Active,
		Source:    src,
		Target:    in.Target,
		Domain:    v.Domain,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO valias (aid, hid, active, source, target)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		a.AccountID, a.VhostID, a.Active, a.Source, a.Target,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "source"); ok {
			return nil, verr
		}
		return nil, fmt.Errorf("insert alias: %w", err)
	}

	full := address.Derive(src, v.Domain)
	var outcomes []provision.Outcome
	if configure {
		outcomes = append(outcomes, s.runner.Run(ctx, provision.AddAlias(full, a.Target)))
	}

	res := Reconcile(full, fmt.Sprintf("Alias %s created successfully.", full),
		"Alias created in database but system setup failed", outcomes...)
	res.Data = a
	logResult(ctx, res, "alias created")
	return res, nil
}

func (s *AliasService) Get(ctx context.Context, id int64) (*model.Alias, error) {
	a, err := scanAlias(s.db.QueryRow(ctx, `SELECT `+aliasColumns+` FROM valias_view WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "alias", id)
	}
	return a, nil
}

func (s *AliasService) List(ctx context.Context, params request.ListParams) ([]model.Alias, bool, error) {
	query := `SELECT ` + aliasColumns + ` FROM valias_view WHERE true`
	var args []any
	argIdx := 1

	if params.VhostID > 0 {
		query += fmt.Sprintf(` AND hid = $%d`, argIdx)
		args = append(args, params.VhostID)
		argIdx++
	}
	if params.Search != "" {
		query += fmt.Sprintf(` AND (source ILIKE $%d OR target ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Active != nil {
		query += fmt.Sprintf(` AND active = $%d`, argIdx)
		args = append(args, *params.Active)
		argIdx++
	}
	if params.Cursor > 0 {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []model.Alias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate aliases: %w", err)
	}

	hasMore := len(aliases) > params.Limit
	if hasMore {
		aliases = aliases[:params.Limit]
	}
	return aliases, hasMore, nil
}

// Update writes the row, then reconfigures forwarding. A changed source is
// removed and re-added; a changed target alone is updated in place. When the
// source changed, the add is attempted even if the removal failed.
func (s *AliasService) Update(ctx context.Context, id int64, in AliasInput) (*Result, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := vhostLimits(ctx, s.db, in.VhostID)
	if err != nil {
		return nil, err
	}
	src := address.NormalizeAliasSource(in.Source, v.Domain)
	if err := s.checkSource(ctx, src, v.ID, id); err != nil {
		return nil, err
	}

	oldFull := address.Derive(a.Source, a.Domain)
	oldTarget := a.Target
	newFull := address.Derive(src, v.Domain)

	a.AccountID = v.AccountID
	a.VhostID = v.ID
	a.Active = in.Active
	a.Source = src
	a.Target = in.Target
	a.Domain = v.Domain

	err = s.db.QueryRow(ctx,
		`UPDATE valias SET aid = $1, hid = $2, active = $3, source = $4, target = $5, updated_at = now()
		 WHERE id = $6 RETURNING updated_at`,
		a.AccountID, a.VhostID, a.Active, a.Source, a.Target, id,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if verr, ok := uniqueTaken(err, "source"); ok {
			return nil, verr
		}
		return nil, notFound(err, "alias", id)
	}

	var outcomes []provision.Outcome
	switch {
	case oldFull != newFull:
		outcomes = append(outcomes,
			s.runner.Run(ctx, provision.RemoveAlias(oldFull)),
			s.runner.Run(ctx, provision.AddAlias(newFull, a.Target)),
		)
	case oldTarget != a.Target:
		outcomes = append(outcomes, s.runner.Run(ctx, provision.UpdateAlias(newFull, a.Target)))
	}

	res := Reconcile(newFull, "Alias updated successfully.",
		"Alias updated in database but system update failed", outcomes...)
	res.Data = a
	logResult(ctx, res, "alias updated")
	return res, nil
}

func (s *AliasService) Delete(ctx context.Context, id int64) (*Result, error) {
	full, err := s.delete(ctx, id)
	if err != nil {
		return nil, err
	}

	out := s.runner.Run(ctx, provision.RemoveAlias(full))
	res := Reconcile(full, fmt.Sprintf("Alias %s removed successfully.", full),
		"Alias removed from database but system cleanup failed", out)
	logResult(ctx, res, "alias deleted")
	return res, nil
}

func (s *AliasService) BulkDelete(ctx context.Context, ids []int64) *BulkResult {
	res := newBulkResult(len(ids))
	for _, id := range ids {
		full, err := s.delete(ctx, id)
		if err != nil {
			res.AddError(id, "", err)
			continue
		}
		res.Add(id, full, s.runner.Run(ctx, provision.RemoveAlias(full)))
	}
	zerolog.Ctx(ctx).Info().Str("summary", res.Summary()).Msg("aliases bulk deleted")
	return res
}

// delete removes the row and returns the full source address it forwarded.
func (s *AliasService) delete(ctx context.Context, id int64) (string, error) {
	var source, domain string
	err := s.db.QueryRow(ctx,
		`DELETE FROM valias a USING vhosts v WHERE a.id = $1 AND v.id = a.hid RETURNING a.source, v.domain`, id,
	).Scan(&source, &domain)
	if err != nil {
		return "", notFound(err, "alias", id)
	}
	return address.Derive(source, domain), nil
}

func (s *AliasService) checkSource(ctx context.Context, src string, hid, exceptID int64) error {
	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM valias WHERE source = $1 AND hid = $2 AND id <> $3)`,
		src, hid, exceptID,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check alias uniqueness: %w", err)
	}
	if taken {
		return takenError("source")
	}
	return nil
}

func scanAlias(row pgx.Row) (*model.Alias, error) {
	var a model.Alias
	err := row.Scan(&a.ID, &a.AccountID, &a.VhostID, &a.Active, &a.Source, &a.Target,
		&a.CreatedAt, &a.UpdatedAt, &a.Domain)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
