package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/peraluna/trip-planner-api/internal/adapters/postgres"
	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const tripColumns = `
	id, owner_id, destination, country, start_date, end_date,
	adults, children, budget, budget_type, flexibility, interests,
	status, created_at, updated_at`

const itemColumns = `
	id, trip_id, type, provider, title, subtitle, details,
	price, nights, tag, is_confirmed, booking_reference, created_at`

func (r *Repo) Create(ctx context.Context, t domain.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertTrip(ctx, tx, tripUUID, t); err != nil {
			return err
		}
		return insertItems(ctx, tx, tripUUID, t.Items)
	})
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "trips_pkey" {
		return triprepo.ErrAlreadyExists
	}
	return mapErr(err)
}

func (r *Repo) Save(ctx context.Context, t domain.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE trips
		SET destination = $3,
		    country = $4,
		    start_date = $5,
		    end_date = $6,
		    adults = $7,
		    children = $8,
		    budget = $9,
		    budget_type = $10,
		    flexibility = $11,
		    interests = $12,
		    status = $13,
		    updated_at = $14
		WHERE id = $1 AND owner_id = $2
	`,
		tripUUID,
		string(t.OwnerID),
		t.Destination,
		t.Country,
		dateOf(t.StartDate),
		dateOf(t.EndDate),
		t.Adults,
		t.Children,
		t.Budget,
		string(t.BudgetType),
		string(t.Flexibility),
		interestsForDB(t.Interests),
		string(t.Status),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Upsert(ctx context.Context, t domain.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		items := t.Items
		var owner string
		err := tx.QueryRow(ctx, `SELECT owner_id FROM trips WHERE id = $1 FOR UPDATE`, tripUUID).Scan(&owner)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if err := insertTrip(ctx, tx, tripUUID, t); err != nil {
				return err
			}
		case err != nil:
			return err
		case owner != string(t.OwnerID):
			return triprepo.ErrNotFound
		default:
			if _, err := tx.Exec(ctx, `
				UPDATE trips
				SET destination = $2, country = $3, start_date = $4, end_date = $5,
				    adults = $6, children = $7, budget = $8, budget_type = $9,
				    flexibility = $10, interests = $11, status = $12, updated_at = $13
				WHERE id = $1
			`,
				tripUUID, t.Destination, t.Country, dateOf(t.StartDate), dateOf(t.EndDate),
				t.Adults, t.Children, t.Budget, string(t.BudgetType), string(t.Flexibility),
				interestsForDB(t.Interests), string(t.Status), t.UpdatedAt.UTC(),
			); err != nil {
				return err
			}
			stored, err := loadItems(ctx, tx, []uuid.UUID{tripUUID})
			if err != nil {
				return err
			}
			items = domain.KeepConfirmed(stored[domain.TripID(tripUUID.String())], items)
			if _, err := tx.Exec(ctx, `DELETE FROM planned_items WHERE trip_id = $1`, tripUUID); err != nil {
				return err
			}
		}
		return insertItems(ctx, tx, tripUUID, items)
	})
	return mapErr(err)
}

func (r *Repo) Delete(ctx context.Context, owner domain.OwnerID, id domain.TripID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1 AND owner_id = $2`, tripUUID, string(owner))
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.Trip, error) {
	if r.pool == nil {
		return domain.Trip{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 AND owner_id = $2`, tripUUID, string(owner))
	t, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, triprepo.ErrNotFound
		}
		return domain.Trip{}, mapErr(err)
	}
	items, err := loadItems(ctx, r.pool, []uuid.UUID{tripUUID})
	if err != nil {
		return domain.Trip{}, mapErr(err)
	}
	t.Items = items[t.ID]
	if t.Items == nil {
		t.Items = []domain.PlannedItem{}
	}
	return t, nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]domain.Trip, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE owner_id = $1
		ORDER BY created_at DESC, id::text ASC
	`, string(owner))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.Trip, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, t)
		ids = append(ids, uuid.MustParse(string(t.ID)))
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []domain.PlannedItem{}
		}
	}
	return out, nil
}

func (r *Repo) AddItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(it.TripID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockOwnedTrip(ctx, tx, owner, tripUUID); err != nil {
			return err
		}
		return insertItems(ctx, tx, tripUUID, []domain.PlannedItem{it})
	})
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "planned_items_pkey" {
		return triprepo.ErrAlreadyExists
	}
	return mapErr(err)
}

func (r *Repo) UpdateItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(it.TripID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	itemUUID, err := uuid.Parse(string(it.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	details, err := domain.EncodeDetails(it.Details)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE planned_items pi
		SET price = $4, nights = $5, tag = $6, subtitle = $7, details = $8
		FROM trips tr
		WHERE pi.id = $1 AND pi.trip_id = $2 AND pi.is_confirmed = FALSE
		  AND tr.id = pi.trip_id AND tr.owner_id = $3
	`, itemUUID, tripUUID, string(owner), it.Price, it.Nights, it.Tag, it.Subtitle, details)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return r.untouchedItem(ctx, owner, tripUUID, itemUUID)
	}
	return nil
}

func (r *Repo) DeleteItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(tripID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	itemUUID, err := uuid.Parse(string(itemID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM planned_items pi
		USING trips tr
		WHERE pi.id = $1 AND pi.trip_id = $2 AND pi.is_confirmed = FALSE
		  AND tr.id = pi.trip_id AND tr.owner_id = $3
	`, itemUUID, tripUUID, string(owner))
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return r.untouchedItem(ctx, owner, tripUUID, itemUUID)
	}
	return nil
}

// untouchedItem explains a conditional item write that matched no row.
func (r *Repo) untouchedItem(ctx context.Context, owner domain.OwnerID, tripUUID, itemUUID uuid.UUID) error {
	var confirmed bool
	err := r.pool.QueryRow(ctx, `
		SELECT pi.is_confirmed
		FROM planned_items pi
		JOIN trips tr ON tr.id = pi.trip_id
		WHERE pi.id = $1 AND pi.trip_id = $2 AND tr.owner_id = $3
	`, itemUUID, tripUUID, string(owner)).Scan(&confirmed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return triprepo.ErrNotFound
	case err != nil:
		return mapErr(err)
	case confirmed:
		return triprepo.ErrConfirmed
	default:
		return triprepo.ErrNotFound
	}
}

func (r *Repo) ConfirmItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, reference string) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	if reference == "" {
		return false, domain.ErrInvalidArgument
	}
	tripUUID, err := uuid.Parse(string(tripID))
	if err != nil {
		return false, triprepo.ErrNotFound
	}
	itemUUID, err := uuid.Parse(string(itemID))
	if err != nil {
		return false, triprepo.ErrNotFound
	}

	var changed bool
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var confirmed bool
		err := tx.QueryRow(ctx, `
			SELECT pi.is_confirmed
			FROM planned_items pi
			JOIN trips tr ON tr.id = pi.trip_id
			WHERE pi.id = $1 AND pi.trip_id = $2 AND tr.owner_id = $3
			FOR UPDATE OF pi
		`, itemUUID, tripUUID, string(owner)).Scan(&confirmed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return triprepo.ErrNotFound
			}
			return err
		}
		if confirmed {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE planned_items
			SET is_confirmed = TRUE, booking_reference = $2
			WHERE id = $1 AND is_confirmed = FALSE
		`, itemUUID, reference); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, mapErr(err)
	}
	return changed, nil
}

// --- helpers ---

func insertTrip(ctx context.Context, tx pgx.Tx, tripUUID uuid.UUID, t domain.Trip) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		tripUUID,
		string(t.OwnerID),
		t.Destination,
		t.Country,
		dateOf(t.StartDate),
		dateOf(t.EndDate),
		t.Adults,
		t.Children,
		t.Budget,
		string(t.BudgetType),
		string(t.Flexibility),
		interestsForDB(t.Interests),
		string(t.Status),
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	return err
}

func insertItems(ctx context.Context, tx pgx.Tx, tripUUID uuid.UUID, items []domain.PlannedItem) error {
	for _, it := range items {
		itemUUID, err := uuid.Parse(string(it.ID))
		if err != nil {
			return fmt.Errorf("invalid item id: %w", err)
		}
		details, err := domain.EncodeDetails(it.Details)
		if err != nil {
			return err
		}
		var ref *string
		if it.IsConfirmed {
			ref = it.BookingReference
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO planned_items (`+itemColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`,
			itemUUID,
			tripUUID,
			string(it.Type),
			it.Provider,
			it.Title,
			it.Subtitle,
			details,
			it.Price,
			it.Nights,
			it.Tag,
			it.IsConfirmed,
			ref,
			it.CreatedAt.UTC(),
		); err != nil {
			return err
		}
	}
	return nil
}

func lockOwnedTrip(ctx context.Context, tx pgx.Tx, owner domain.OwnerID, tripUUID uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM trips WHERE id = $1 AND owner_id = $2 FOR UPDATE`, tripUUID, string(owner)).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return triprepo.ErrNotFound
	}
	return err
}

func scanTrip(row pgx.Row) (domain.Trip, error) {
	var (
		id          uuid.UUID
		owner       string
		destination string
		country     string
		startDate   pgtype.Date
		endDate     pgtype.Date
		adults      int
		children    int
		budget      float64
		budgetType  string
		flexibility string
		interests   []string
		status      string
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(
		&id,
		&owner,
		&destination,
		&country,
		&startDate,
		&endDate,
		&adults,
		&children,
		&budget,
		&budgetType,
		&flexibility,
		&interests,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Trip{}, err
	}
	if interests == nil {
		interests = []string{}
	}
	return domain.Trip{
		ID:          domain.TripID(id.String()),
		OwnerID:     domain.OwnerID(owner),
		Destination: destination,
		Country:     country,
		StartDate:   dateToTime(startDate),
		EndDate:     dateToTime(endDate),
		Adults:      adults,
		Children:    children,
		Budget:      budget,
		BudgetType:  domain.BudgetType(budgetType),
		Flexibility: domain.Flexibility(flexibility),
		Interests:   interests,
		Status:      domain.TripStatus(status),
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   updatedAt.UTC(),
	}, nil
}

// loadItems returns the items of the given trips keyed by trip, each in insertion order.
func loadItems(ctx context.Context, q querier, tripUUIDs []uuid.UUID) (map[domain.TripID][]domain.PlannedItem, error) {
	rows, err := q.Query(ctx, `
		SELECT `+itemColumns+`
		FROM planned_items
		WHERE trip_id = ANY($1)
		ORDER BY trip_id, seq ASC
	`, tripUUIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.TripID][]domain.PlannedItem, len(tripUUIDs))
	for rows.Next() {
		var (
			id        uuid.UUID
			tripID    uuid.UUID
			typ       string
			provider  string
			title     string
			subtitle  *string
			details   []byte
			price     float64
			nights    *int
			tag       *string
			confirmed bool
			ref       *string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &tripID, &typ, &provider, &title, &subtitle, &details, &price, &nights, &tag, &confirmed, &ref, &createdAt); err != nil {
			return nil, err
		}
		d, err := domain.DecodeDetails(domain.ItemType(typ), details)
		if err != nil {
			return nil, err
		}
		tid := domain.TripID(tripID.String())
		out[tid] = append(out[tid], domain.PlannedItem{
			ID:               domain.ItemID(id.String()),
			TripID:           tid,
			Type:             domain.ItemType(typ),
			Provider:         provider,
			Title:            title,
			Subtitle:         subtitle,
			Details:          d,
			Price:            price,
			Nights:           nights,
			Tag:              tag,
			IsConfirmed:      confirmed,
			BookingReference: ref,
			CreatedAt:        createdAt.UTC(),
		})
	}
	return out, rows.Err()
}

func dateOf(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: domain.DateOnly(t), Valid: true}
}

func dateToTime(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func interestsForDB(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// mapErr turns connectivity failures into triprepo.ErrUnavailable so callers can fall back.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, triprepo.ErrNotFound) || errors.Is(err, triprepo.ErrAlreadyExists) {
		return err
	}
	if postgres.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", triprepo.ErrUnavailable, err)
	}
	return err
}
