// Package postgres implémente store.Store sur pgx.
// Les transactions tournent en READ COMMITTED ; la sérialisation des
// recalculs repose sur le verrou de ligne posé par LockProgress.
package postgres

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/apperror"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
)

// Codes SQLSTATE utilisés
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(t pgx.Tx) error {
		return fn(ctx, &tx{tx: t})
	})
	return mapError(err)
}

func (s *Store) Close() {
	s.pool.Close()
}

// mapError traduit les erreurs pgx en erreurs applicatives.
// Une *apperror.Error déjà présente dans la chaîne est conservée.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return apperror.Wrap(apperror.Conflict, err, "concurrent transaction conflict")
		case codeUniqueViolation:
			return apperror.Wrap(apperror.Validation, err, "record already exists")
		case codeForeignKeyViolation:
			return apperror.Wrap(apperror.NotFound, err, "referenced record not found")
		case codeCheckViolation:
			return apperror.Wrap(apperror.Validation, err, "constraint violated")
		case codeNumericOutOfRange:
			return apperror.Wrap(apperror.Validation, err, "value out of range")
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return apperror.Wrap(apperror.Unavailable, err, "database unavailable")
	}
	return err
}

type tx struct {
	tx pgx.Tx
}

func toTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// Activities

const activityColumns = `id, user_id, occurred_on, logged_at, metric_value, kind, notes, updated_at`

func scanActivity(row pgx.Row) (*model.Activity, error) {
	var a model.Activity
	var occurredOn time.Time
	if err := row.Scan(&a.ID, &a.UserID, &occurredOn, &a.LoggedAt, &a.MetricValue, &a.Kind, &a.Notes, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.OccurredOn = civil.DateOf(occurredOn)
	return &a, nil
}

func (t *tx) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	a, err := scanActivity(t.tx.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFoundf("activity %s not found", id)
	}
	return a, mapError(err)
}

func (t *tx) InsertActivity(ctx context.Context, a *model.Activity) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO activities (id, user_id, occurred_on, logged_at, metric_value, kind, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING updated_at
	`, a.ID, a.UserID, toTime(a.OccurredOn), a.LoggedAt, a.MetricValue, a.Kind, a.Notes).Scan(&a.UpdatedAt)
	return mapInsertActivityError(err)
}

// mapInsertActivityError : un id déjà pris par une écriture concurrente est
// un conflit, la nouvelle tentative passe par la mise à jour
func mapInsertActivityError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == "activities_pkey" {
		return apperror.Wrap(apperror.Conflict, err, "activity inserted concurrently")
	}
	return mapError(err)
}

func (t *tx) UpdateActivity(ctx context.Context, a *model.Activity) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE activities
		SET user_id = $2, occurred_on = $3, logged_at = $4, metric_value = $5, kind = $6, notes = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.UserID, toTime(a.OccurredOn), a.LoggedAt, a.MetricValue, a.Kind, a.Notes).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFoundf("activity %s not found", a.ID)
	}
	return mapError(err)
}

func (t *tx) DeleteActivity(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFoundf("activity %s not found", id)
	}
	return nil
}

func (t *tx) ListActivities(ctx context.Context, userID string, from, to civil.Date) ([]model.Activity, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE user_id = $1 AND occurred_on BETWEEN $2 AND $3
		ORDER BY occurred_on, logged_at, id
	`, userID, toTime(from), toTime(to))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, *a)
	}
	return out, mapError(rows.Err())
}

func (t *tx) UsersWithActivity(ctx context.Context, from, to civil.Date, afterUserID string, limit int) ([]string, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT DISTINCT user_id
		FROM activities
		WHERE occurred_on BETWEEN $1 AND $2 AND user_id > $3
		ORDER BY user_id
		LIMIT $4
	`, toTime(from), toTime(to), afterUserID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return users, mapError(err)
}

// Challenges

const challengeColumns = `id, title, description, start_date, end_date, target_value, unit, aggregation, status, tags, created_at, updated_at`

func scanChallenge(row pgx.Row) (*model.Challenge, error) {
	var c model.Challenge
	var start, end time.Time
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &start, &end, &c.TargetValue, &c.Unit,
		&c.Aggregation, &c.Status, pq.Array(&c.Tags), &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.StartDate = civil.DateOf(start)
	c.EndDate = civil.DateOf(end)
	return &c, nil
}

func (t *tx) InsertChallenge(ctx context.Context, c *model.Challenge) error {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO challenges (id, title, description, start_date, end_date, target_value, unit, aggregation, status, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::text[], NOW(), NOW())
		RETURNING created_at, updated_at
	`, c.ID, c.Title, c.Description, toTime(c.StartDate), toTime(c.EndDate), c.TargetValue, c.Unit,
		c.Aggregation, c.Status, pq.Array(tags),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapError(err)
}

func (t *tx) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	c, err := scanChallenge(t.tx.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFoundf("challenge %s not found", id)
	}
	return c, mapError(err)
}

func (t *tx) UpdateChallengeStatus(ctx context.Context, id string, status model.ChallengeStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE challenges SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFoundf("challenge %s not found", id)
	}
	return nil
}

func (t *tx) DeleteChallenge(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFoundf("challenge %s not found", id)
	}
	return nil
}

func (t *tx) ListChallenges(ctx context.Context, status model.ChallengeStatus) ([]model.Challenge, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+challengeColumns+`
		FROM challenges
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY start_date, id
	`, string(status))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, *c)
	}
	return out, mapError(rows.Err())
}

// Progress

const progressColumns = `user_id, challenge_id, current_value, first_activity_at, completed_at, updated_at`

func scanProgress(row pgx.Row) (*model.Progress, error) {
	var p model.Progress
	if err := row.Scan(&p.UserID, &p.ChallengeID, &p.CurrentValue, &p.FirstActivityAt, &p.CompletedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *tx) LockProgress(ctx context.Context, userID, challengeID string) (*model.Progress, error) {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO progress (user_id, challenge_id, current_value, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (user_id, challenge_id) DO NOTHING
	`, userID, challengeID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
			return nil, apperror.NotFoundf("challenge %s not found", challengeID)
		}
		return nil, mapError(err)
	}

	p, err := scanProgress(t.tx.QueryRow(ctx, `
		SELECT `+progressColumns+`
		FROM progress
		WHERE user_id = $1 AND challenge_id = $2
		FOR UPDATE
	`, userID, challengeID))
	return p, mapError(err)
}

func (t *tx) SaveProgress(ctx context.Context, p *model.Progress) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO progress (user_id, challenge_id, current_value, first_activity_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, challenge_id) DO UPDATE
		SET current_value = EXCLUDED.current_value,
			first_activity_at = EXCLUDED.first_activity_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`, p.UserID, p.ChallengeID, p.CurrentValue, p.FirstActivityAt, p.CompletedAt).Scan(&p.UpdatedAt)
	return mapError(err)
}

func (t *tx) GetProgress(ctx context.Context, userID, challengeID string) (*model.Progress, error) {
	p, err := scanProgress(t.tx.QueryRow(ctx, `
		SELECT `+progressColumns+` FROM progress WHERE user_id = $1 AND challenge_id = $2
	`, userID, challengeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFoundf("no progress for user %s on challenge %s", userID, challengeID)
	}
	return p, mapError(err)
}

func (t *tx) ListProgress(ctx context.Context, challengeID string) ([]model.Progress, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+progressColumns+`
		FROM progress
		WHERE challenge_id = $1
		ORDER BY current_value DESC, user_id
	`, challengeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, *p)
	}
	return out, mapError(rows.Err())
}

// Notifications

const notificationColumns = `id, user_id, type, title, message, payload, read, created_at`

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	var raw []byte
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &raw, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	payload, err := model.DecodePayload(n.Type, raw)
	if err != nil {
		return nil, err
	}
	n.Payload = payload
	return &n, nil
}

func (t *tx) InsertNotification(ctx context.Context, n *model.Notification) error {
	raw, err := model.EncodePayload(n.Payload)
	if err != nil {
		return apperror.Wrap(apperror.Validation, err, "invalid notification payload")
	}
	var createdAt *time.Time
	if !n.CreatedAt.IsZero() {
		createdAt = &n.CreatedAt
	}
	err = t.tx.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, payload, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		RETURNING created_at
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, raw, n.Read, createdAt).Scan(&n.CreatedAt)
	return mapError(err)
}

func (t *tx) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	n, err := scanNotification(t.tx.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFoundf("notification %s not found", id)
	}
	return n, mapError(err)
}

func (t *tx) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := t.tx.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limitArg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, *n)
	}
	return out, mapError(rows.Err())
}

func (t *tx) MarkNotificationRead(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFoundf("notification %s not found", id)
	}
	return nil
}
