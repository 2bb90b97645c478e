package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/errcodes"
)

const dealColumns = `
	id, customer_id, vehicle_id, trade_in_vehicle_id, sales_rep_id, status, deal_type,
	purchase_price, trade_in_value, down_payment, tax_rate, tax_amount, total_price,
	monthly_payment, financing_term_months, financing_rate, version, created_at, updated_at`

// DealRepository хранит сделки в Postgres или SQLite. Запросы пишутся с `?`
// и переписываются под драйвер через Rebind.
type DealRepository struct {
	db *sqlx.DB
}

func NewDealRepository(db *sqlx.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Internal(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.Internal(fmt.Errorf("%w; rollback: %v", err, rbErr), "transaction failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.Internal(err, "failed to commit")
	}

	return nil
}

// Create сохраняет новую сделку вместе со сборами, допами и историей; версия становится 1.
func (r *DealRepository) Create(ctx context.Context, deal *entity.Deal) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		schema := fromDeal(deal)
		schema.Version = 1

		query := `
			INSERT INTO deals (` + dealColumns + `)
			VALUES (
				:id, :customer_id, :vehicle_id, :trade_in_vehicle_id, :sales_rep_id, :status, :deal_type,
				:purchase_price, :trade_in_value, :down_payment, :tax_rate, :tax_amount, :total_price,
				:monthly_payment, :financing_term_months, :financing_rate, :version, :created_at, :updated_at
			)`

		if _, err := tx.NamedExecContext(ctx, query, schema); err != nil {
			return domain.Internal(err, "failed to create deal")
		}

		if err := insertFees(ctx, tx, deal.ID, deal.Fees); err != nil {
			return err
		}

		for _, addOn := range deal.AddOns {
			if err := insertAddOn(ctx, tx, addOn); err != nil {
				return err
			}
		}

		for i, entry := range deal.StatusHistory {
			if err := insertHistory(ctx, tx, deal.ID, i, entry); err != nil {
				return err
			}
		}

		deal.Version = 1

		return nil
	})
}

// GetByID возвращает сделку со сборами, допами и историей статусов.
func (r *DealRepository) GetByID(ctx context.Context, id value.DealID) (*entity.Deal, error) {
	query := r.db.Rebind(`SELECT ` + dealColumns + ` FROM deals WHERE id = ?`)

	var schema dealSchema
	if err := r.db.GetContext(ctx, &schema, query, id.UUID()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(errcodes.DealNotFound, fmt.Sprintf("deal %s not found", id))
		}
		return nil, domain.Internal(err, "failed to get deal")
	}

	deal, err := schema.toDomain()
	if err != nil {
		return nil, domain.Internal(err, "failed to decode deal")
	}

	if err := r.loadChildren(ctx, []*entity.Deal{deal}); err != nil {
		return nil, err
	}

	return deal, nil
}

// List возвращает сделки по фильтру, новые первыми.
func (r *DealRepository) List(ctx context.Context, filter entity.DealFilter) ([]entity.Deal, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status.String())
	}
	if filter.SalesRepID != nil {
		conds = append(conds, "sales_rep_id = ?")
		args = append(args, *filter.SalesRepID)
	}
	if filter.CustomerID != nil {
		conds = append(conds, "customer_id = ?")
		args = append(args, *filter.CustomerID)
	}
	if filter.VehicleID != nil {
		conds = append(conds, "vehicle_id = ?")
		args = append(args, *filter.VehicleID)
	}
	if filter.CreatedFrom != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, timestamp(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, timestamp(*filter.CreatedTo))
	}

	query := `SELECT ` + dealColumns + ` FROM deals`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	var schemas []dealSchema
	if err := r.db.SelectContext(ctx, &schemas, r.db.Rebind(query), args...); err != nil {
		return nil, domain.Internal(err, "failed to list deals")
	}

	deals := make([]*entity.Deal, 0, len(schemas))
	for i := range schemas {
		deal, err := schemas[i].toDomain()
		if err != nil {
			return nil, domain.Internal(err, "failed to decode deal")
		}
		deals = append(deals, deal)
	}

	if err := r.loadChildren(ctx, deals); err != nil {
		return nil, err
	}

	return lo.Map(deals, func(d *entity.Deal, _ int) entity.Deal { return *d }), nil
}

// Update перезаписывает поля сделки и её сборы.
func (r *DealRepository) Update(ctx context.Context, deal *entity.Deal) error {
	return r.versioned(ctx, deal, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`DELETE FROM deal_fees WHERE deal_id = ?`)
		if _, err := tx.ExecContext(ctx, query, deal.ID.UUID()); err != nil {
			return domain.Internal(err, "failed to delete fees")
		}

		return insertFees(ctx, tx, deal.ID, deal.Fees)
	})
}

// AppendStatusHistory сохраняет новый статус и последнюю запись истории.
func (r *DealRepository) AppendStatusHistory(
	ctx context.Context,
	deal *entity.Deal,
	entry entity.DealStatusHistory,
) error {
	return r.versioned(ctx, deal, func(tx *sqlx.Tx) error {
		return insertHistory(ctx, tx, deal.ID, len(deal.StatusHistory)-1, entry)
	})
}

// AddAddOn сохраняет доп и пересчитанные суммы сделки.
func (r *DealRepository) AddAddOn(ctx context.Context, deal *entity.Deal, addOn entity.DealAddOn) error {
	return r.versioned(ctx, deal, func(tx *sqlx.Tx) error {
		return insertAddOn(ctx, tx, addOn)
	})
}

// RemoveAddOn удаляет доп и сохраняет пересчитанные суммы сделки.
func (r *DealRepository) RemoveAddOn(ctx context.Context, deal *entity.Deal, addOnID value.AddOnID) error {
	return r.versioned(ctx, deal, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`DELETE FROM deal_add_ons WHERE id = ? AND deal_id = ?`)

		res, err := tx.ExecContext(ctx, query, addOnID.UUID(), deal.ID.UUID())
		if err != nil {
			return domain.Internal(err, "failed to delete add-on")
		}

		if rows, _ := res.RowsAffected(); rows == 0 {
			return domain.NotFound(errcodes.AddOnNotFound, fmt.Sprintf("add-on %s not found", addOnID))
		}

		return nil
	})
}

// CountByStatus возвращает число сделок в каждом статусе.
func (r *DealRepository) CountByStatus(ctx context.Context) (map[entity.DealStatus]int, error) {
	query := `SELECT status, COUNT(*) AS count FROM deals GROUP BY status`

	var rows []statusCountSchema
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, domain.Internal(err, "failed to count deals")
	}

	counts := make(map[entity.DealStatus]int, len(entity.DealStatuses))
	for _, s := range entity.DealStatuses {
		counts[s] = 0
	}

	for _, row := range rows {
		status, err := entity.ParseDealStatus(row.Status)
		if err != nil {
			return nil, domain.Internal(err, "failed to decode status")
		}
		counts[status] = row.Count
	}

	return counts, nil
}

// versioned записывает поля сделки и выполняет fn в одной транзакции.
// deal.Version увеличивается только после успешного коммита.
func (r *DealRepository) versioned(ctx context.Context, deal *entity.Deal, fn func(tx *sqlx.Tx) error) error {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := writeDeal(ctx, tx, deal); err != nil {
			return err
		}

		return fn(tx)
	})
	if err != nil {
		return err
	}

	deal.Version++

	return nil
}

// writeDeal обновляет строку сделки, если её версия не изменилась с момента чтения.
func writeDeal(ctx context.Context, tx *sqlx.Tx, deal *entity.Deal) error {
	query := `
		UPDATE deals SET
			customer_id = :customer_id,
			vehicle_id = :vehicle_id,
			trade_in_vehicle_id = :trade_in_vehicle_id,
			sales_rep_id = :sales_rep_id,
			status = :status,
			deal_type = :deal_type,
			purchase_price = :purchase_price,
			trade_in_value = :trade_in_value,
			down_payment = :down_payment,
			tax_rate = :tax_rate,
			tax_amount = :tax_amount,
			total_price = :total_price,
			monthly_payment = :monthly_payment,
			financing_term_months = :financing_term_months,
			financing_rate = :financing_rate,
			version = version + 1,
			updated_at = :updated_at
		WHERE id = :id AND version = :version`

	res, err := tx.NamedExecContext(ctx, query, fromDeal(deal))
	if err != nil {
		return domain.Internal(err, "failed to update deal")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.Internal(err, "failed to check rows")
	}

	if rows == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists,
			tx.Rebind(`SELECT COUNT(*) FROM deals WHERE id = ?`), deal.ID.UUID()); err != nil {
			return domain.Internal(err, "failed to check deal")
		}

		if exists == 0 {
			return domain.NotFound(errcodes.DealNotFound, fmt.Sprintf("deal %s not found", deal.ID))
		}

		return domain.Conflict(errcodes.DealVersionConflict,
			fmt.Sprintf("deal %s was modified concurrently, reload and retry", deal.ID))
	}

	return nil
}

func insertFees(ctx context.Context, tx *sqlx.Tx, dealID value.DealID, fees []entity.Fee) error {
	if len(fees) == 0 {
		return nil
	}

	query := `
		INSERT INTO deal_fees (id, deal_id, position, type, description, amount)
		VALUES (:id, :deal_id, :position, :type, :description, :amount)`

	if _, err := tx.NamedExecContext(ctx, query, fromFees(dealID, fees)); err != nil {
		return domain.Internal(err, "failed to insert fees")
	}

	return nil
}

func insertAddOn(ctx context.Context, tx *sqlx.Tx, addOn entity.DealAddOn) error {
	query := `
		INSERT INTO deal_add_ons (
			id, deal_id, type, name, description, price, cost, term, provider_id, created_at, created_by
		) VALUES (
			:id, :deal_id, :type, :name, :description, :price, :cost, :term, :provider_id, :created_at, :created_by
		)`

	if _, err := tx.NamedExecContext(ctx, query, fromAddOn(addOn)); err != nil {
		return domain.Internal(err, "failed to insert add-on")
	}

	return nil
}

func insertHistory(
	ctx context.Context,
	tx *sqlx.Tx,
	dealID value.DealID,
	position int,
	entry entity.DealStatusHistory,
) error {
	query := `
		INSERT INTO deal_status_history (id, deal_id, position, status, changed_at, user_id, notes)
		VALUES (:id, :deal_id, :position, :status, :changed_at, :user_id, :notes)`

	if _, err := tx.NamedExecContext(ctx, query, fromHistory(dealID, position, entry)); err != nil {
		return domain.Internal(err, "failed to insert status history")
	}

	return nil
}

// loadChildren подгружает сборы, допы и историю пачкой для всех сделок.
func (r *DealRepository) loadChildren(ctx context.Context, deals []*entity.Deal) error {
	if len(deals) == 0 {
		return nil
	}

	ids := lo.Map(deals, func(d *entity.Deal, _ int) uuid.UUID { return d.ID.UUID() })
	byID := lo.SliceToMap(deals, func(d *entity.Deal) (value.DealID, *entity.Deal) { return d.ID, d })

	var fees []feeSchema
	if err := r.selectIn(ctx, &fees,
		`SELECT id, deal_id, position, type, description, amount
		 FROM deal_fees WHERE deal_id IN (?) ORDER BY deal_id, position`, ids); err != nil {
		return domain.Internal(err, "failed to load fees")
	}

	for i := range fees {
		d := byID[value.DealID(fees[i].DealID)]
		d.Fees = append(d.Fees, fees[i].toDomain())
	}

	var addOns []addOnSchema
	if err := r.selectIn(ctx, &addOns,
		`SELECT id, deal_id, type, name, description, price, cost, term, provider_id, created_at, created_by
		 FROM deal_add_ons WHERE deal_id IN (?) ORDER BY deal_id, created_at, id`, ids); err != nil {
		return domain.Internal(err, "failed to load add-ons")
	}

	for i := range addOns {
		d := byID[value.DealID(addOns[i].DealID)]
		d.AddOns = append(d.AddOns, addOns[i].toDomain())
	}

	var history []historySchema
	if err := r.selectIn(ctx, &history,
		`SELECT id, deal_id, position, status, changed_at, user_id, notes
		 FROM deal_status_history WHERE deal_id IN (?) ORDER BY deal_id, position`, ids); err != nil {
		return domain.Internal(err, "failed to load status history")
	}

	for i := range history {
		entry, err := history[i].toDomain()
		if err != nil {
			return domain.Internal(err, "failed to decode status history")
		}

		d := byID[value.DealID(history[i].DealID)]
		d.StatusHistory = append(d.StatusHistory, entry)
	}

	return nil
}

func (r *DealRepository) selectIn(ctx context.Context, dest any, query string, ids []uuid.UUID) error {
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return fmt.Errorf("sqlx.In: %w", err)
	}

	return r.db.SelectContext(ctx, dest, r.db.Rebind(query), args...)
}
