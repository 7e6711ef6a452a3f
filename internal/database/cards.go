package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
)

// insertChunkSize bounds the rows of one multi-row insert
const insertChunkSize = 500

var cardColumns = []string{
	"id", "name", "set_code", "collector_number", "set_name", "rarity",
	"image_url", "price_usd", "price_usd_foil", "payload", "updated_at",
}

// CardRepo implements domain.CardCache on SQLite
type CardRepo struct {
	log zerolog.Logger
	db  *DB
	now func() time.Time
}

var _ domain.CardCache = (*CardRepo)(nil)

// NewCardRepo creates a new card cache repository
func NewCardRepo(log zerolog.Logger, db *DB) *CardRepo {
	return &CardRepo{
		log: log.With().Str("repo", "cards").Logger(),
		db:  db,
		now: time.Now,
	}
}

// IsValid reports whether a bulk snapshot of dataType exists and is younger than ttl
func (r *CardRepo) IsValid(ctx context.Context, dataType string, ttl time.Duration) (bool, error) {
	meta, err := r.Metadata(ctx, dataType)
	if err != nil {
		return false, err
	}
	if meta == nil {
		return false, nil
	}

	return meta.Fresh(r.now(), ttl), nil
}

// Metadata returns the snapshot metadata for dataType, or nil if none was loaded
func (r *CardRepo) Metadata(ctx context.Context, dataType string) (*domain.CacheMetadata, error) {
	queryBuilder := r.db.squirrel.
		Select("data_type", "download_url", "updated_at", "size_bytes", "version_token").
		From("bulk_metadata").
		Where(sq.Eq{"data_type": dataType})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Metadata")

	var (
		meta      domain.CacheMetadata
		url, tok  sql.NullString
		updatedAt string
	)
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(&meta.DataType, &url, &updatedAt, &meta.SizeBytes, &tok)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error executing query")
	}

	meta.DownloadURL = url.String
	meta.VersionToken = tok.String
	meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid updated_at %q", updatedAt)
	}

	return &meta, nil
}

// LookupExact matches name and set case-insensitively. With a collector number
// the number must match exactly; without one the print with the lowest
// collector number wins. Returns nil when nothing matches.
func (r *CardRepo) LookupExact(ctx context.Context, name, setCode, collectorNumber string) (*domain.CardRecord, error) {
	where := sq.Eq{
		"name":     strings.TrimSpace(name),
		"set_code": strings.TrimSpace(setCode),
	}
	if collectorNumber != "" {
		where["collector_number"] = strings.TrimSpace(collectorNumber)
	}

	queryBuilder := r.db.squirrel.
		Select(cardColumns...).
		From("cards").
		Where(where)

	cards, err := r.queryCards(ctx, queryBuilder, "LookupExact")
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil
	}

	best := cards[0]
	for _, c := range cards[1:] {
		if domain.CollectorLess(c.CollectorNumber, best.CollectorNumber) {
			best = c
		}
	}

	return &best, nil
}

// GetByID returns the cached print with id, or nil when it is not cached
func (r *CardRepo) GetByID(ctx context.Context, id string) (*domain.CardRecord, error) {
	queryBuilder := r.db.squirrel.
		Select(cardColumns...).
		From("cards").
		Where(sq.Eq{"id": strings.TrimSpace(id)}).
		Limit(1)

	cards, err := r.queryCards(ctx, queryBuilder, "GetByID")
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil
	}

	return &cards[0], nil
}

// LookupFuzzy returns up to domain.FuzzyLimit cards whose name contains name.
// When setIdentifier is given, results are limited to cards whose set code
// equals it or whose set name contains it. Exact name matches come first,
// then exact set code matches.
func (r *CardRepo) LookupFuzzy(ctx context.Context, name, setIdentifier string) ([]domain.CardRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	queryBuilder := r.db.squirrel.
		Select(cardColumns...).
		From("cards").
		Where(sq.Expr(`name LIKE ? ESCAPE '\'`, likePattern(name))).
		OrderByClause("CASE WHEN name = ? THEN 0 ELSE 1 END", name)

	if set := strings.ToLower(strings.TrimSpace(setIdentifier)); set != "" {
		queryBuilder = queryBuilder.
			Where(sq.Or{
				sq.Eq{"set_code": set},
				sq.Expr(`set_name LIKE ? ESCAPE '\'`, likePattern(set)),
			}).
			OrderByClause("CASE WHEN set_code = ? THEN 0 ELSE 1 END", set)
	}

	queryBuilder = queryBuilder.
		OrderBy("name", "set_code", "CAST(collector_number AS INTEGER)", "collector_number").
		Limit(domain.FuzzyLimit)

	return r.queryCards(ctx, queryBuilder, "LookupFuzzy")
}

// ListSetCards returns every cached card of a set in collector number order
func (r *CardRepo) ListSetCards(ctx context.Context, setCode string) ([]domain.CardRecord, error) {
	queryBuilder := r.db.squirrel.
		Select(cardColumns...).
		From("cards").
		Where(sq.Eq{"set_code": strings.TrimSpace(setCode)})

	cards, err := r.queryCards(ctx, queryBuilder, "ListSetCards")
	if err != nil {
		return nil, err
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return domain.CollectorLess(cards[i].CollectorNumber, cards[j].CollectorNumber)
	})

	return cards, nil
}

// UpsertBatch inserts or replaces cards by id and returns the number written
func (r *CardRepo) UpsertBatch(ctx context.Context, cards []domain.CardRecord) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	r.db.writeMu.Lock()
	defer r.db.writeMu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := r.insertCards(ctx, tx, "cards", cards); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}

	return len(cards), nil
}

// ReplaceAll replaces the whole catalog with the snapshot produced by load.
// load receives a stage function to call with each batch of records; batches
// go to a staging table so lookups keep seeing the previous catalog. Once
// load returns, the staging table is swapped in and meta written in a single
// transaction. Returns the number of cards in the new catalog.
func (r *CardRepo) ReplaceAll(ctx context.Context, meta domain.CacheMetadata, load func(stage func([]domain.CardRecord) error) error) (int, error) {
	if err := r.clearStaging(ctx); err != nil {
		return 0, err
	}

	stage := func(batch []domain.CardRecord) error {
		if len(batch) == 0 {
			return nil
		}

		r.db.writeMu.Lock()
		defer r.db.writeMu.Unlock()

		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := r.insertCards(ctx, tx, "cards_staging", batch); err != nil {
			return err
		}

		return errors.Wrap(tx.Commit(), "failed to commit staging batch")
	}

	if err := load(stage); err != nil {
		if clearErr := r.clearStaging(context.WithoutCancel(ctx)); clearErr != nil {
			r.log.Error().Err(clearErr).Msg("failed to clear staging table")
		}
		return 0, errors.Wrap(err, "failed to load bulk snapshot")
	}

	return r.swapStaging(ctx, meta)
}

func (r *CardRepo) swapStaging(ctx context.Context, meta domain.CacheMetadata) (int, error) {
	r.db.writeMu.Lock()
	defer r.db.writeMu.Unlock()

	var staged int
	if err := r.db.handler.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards_staging").Scan(&staged); err != nil {
		return 0, errors.Wrap(err, "error counting staged cards")
	}
	if staged == 0 {
		return 0, errors.New("bulk snapshot contained no cards")
	}

	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cards"); err != nil {
		return 0, errors.Wrap(err, "error clearing cards")
	}

	insertBuilder := r.db.squirrel.
		Insert("cards").
		Columns(cardColumns...).
		Select(r.db.squirrel.Select(cardColumns...).From("cards_staging"))

	query, args, err := insertBuilder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("ReplaceAll")

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "error executing query")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "error reading affected rows")
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cards_staging"); err != nil {
		return 0, errors.Wrap(err, "error clearing staging table")
	}

	if err := r.writeMetadata(ctx, tx, meta); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}

	r.log.Debug().Int64("cards", count).Str("data_type", meta.DataType).Msg("swapped in bulk snapshot")
	return int(count), nil
}

// Stats summarizes the catalog and the freshness of dataType
func (r *CardRepo) Stats(ctx context.Context, dataType string, ttl time.Duration) (*domain.CacheStats, error) {
	queryBuilder := r.db.squirrel.
		Select("COUNT(*)", "COUNT(DISTINCT set_code)").
		From("cards")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Stats")

	stats := &domain.CacheStats{}

	r.db.lock.RLock()
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(&stats.TotalCards, &stats.TotalSets)
	r.db.lock.RUnlock()
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}

	meta, err := r.Metadata(ctx, dataType)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		updated := meta.UpdatedAt
		stats.LastUpdate = &updated
		stats.IsValid = meta.Fresh(r.now(), ttl)
	}

	return stats, nil
}

// SetCompletion reports how many cards of setCode are cached
func (r *CardRepo) SetCompletion(ctx context.Context, setCode string) (*domain.SetCompletion, error) {
	setCode = strings.ToLower(strings.TrimSpace(setCode))

	queryBuilder := r.db.squirrel.
		Select("COUNT(*)").
		From("cards").
		Where(sq.Eq{"set_code": setCode})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("SetCompletion")

	var count int

	r.db.lock.RLock()
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(&count)
	r.db.lock.RUnlock()
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}

	return &domain.SetCompletion{
		SetCode:        setCode,
		CachedCards:    count,
		CacheAvailable: count > 0,
	}, nil
}

func (r *CardRepo) queryCards(ctx context.Context, queryBuilder sq.SelectBuilder, method string) ([]domain.CardRecord, error) {
	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg(method)

	r.db.lock.RLock()
	defer r.db.lock.RUnlock()

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var cards []domain.CardRecord
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return cards, nil
}

func (r *CardRepo) insertCards(ctx context.Context, tx *Tx, table string, cards []domain.CardRecord) error {
	now := r.now().UTC().Format(time.RFC3339Nano)

	for start := 0; start < len(cards); start += insertChunkSize {
		end := min(start+insertChunkSize, len(cards))

		queryBuilder := r.db.squirrel.
			Replace(table).
			Columns(cardColumns...)

		for _, c := range cards[start:end] {
			var payload any
			if len(c.RawPayload) > 0 {
				payload = string(c.RawPayload)
			}
			queryBuilder = queryBuilder.Values(
				c.ID, c.Name, strings.ToLower(c.SetCode), c.CollectorNumber, c.SetName, c.Rarity,
				c.ImageURL, c.PriceUSD, c.PriceUSDFoil, payload, now,
			)
		}

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Int("rows", end-start).Msg("insertCards")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "error executing query")
		}
	}

	return nil
}

func (r *CardRepo) writeMetadata(ctx context.Context, tx *Tx, meta domain.CacheMetadata) error {
	updatedAt := meta.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	queryBuilder := r.db.squirrel.
		Replace("bulk_metadata").
		Columns("data_type", "download_url", "updated_at", "size_bytes", "version_token").
		Values(meta.DataType, meta.DownloadURL, updatedAt.UTC().Format(time.RFC3339Nano), meta.SizeBytes, meta.VersionToken)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("writeMetadata")

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

func (r *CardRepo) clearStaging(ctx context.Context) error {
	r.db.writeMu.Lock()
	defer r.db.writeMu.Unlock()

	if _, err := r.db.handler.ExecContext(ctx, "DELETE FROM cards_staging"); err != nil {
		return errors.Wrap(err, "error clearing staging table")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(s rowScanner) (domain.CardRecord, error) {
	var (
		c                                   domain.CardRecord
		setName, rarity, image, price, foil sql.NullString
		payload                             sql.NullString
		updatedAt                           string
	)

	if err := s.Scan(&c.ID, &c.Name, &c.SetCode, &c.CollectorNumber, &setName, &rarity,
		&image, &price, &foil, &payload, &updatedAt); err != nil {
		return c, err
	}

	c.SetName = setName.String
	c.Rarity = rarity.String
	c.ImageURL = image.String
	c.PriceUSD = price.String
	c.PriceUSDFoil = foil.String
	if payload.Valid && payload.String != "" {
		c.RawPayload = json.RawMessage(payload.String)
	}

	return c, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
