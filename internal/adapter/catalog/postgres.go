package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
)

const tableComarcas = "comarcas"

// Querier is the subset of pgxpool.Pool used to read the catalogue.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func regionsQuery() squirrel.SelectBuilder {
	return builder().
		Select("code::text", "name", "ST_AsGeoJSON(ST_Transform(geom, 4326))").
		From(tableComarcas).
		OrderBy("name")
}

// LoadPostgres reads every comarca from the PostGIS comarcas table with its
// geometry reprojected to WGS84.
func LoadPostgres(ctx context.Context, db Querier) (*Catalog, error) {
	sql, args, err := regionsQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build catalogue query: %w", err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalogue: %w", err)
	}

	regions, err := pgx.CollectRows(rows, scanRegion)
	if err != nil {
		return nil, fmt.Errorf("scan catalogue: %w", err)
	}
	return New(regions)
}

func scanRegion(row pgx.CollectableRow) (domain.Region, error) {
	var (
		code     string
		name     string
		geometry *string
	)
	if err := row.Scan(&code, &name, &geometry); err != nil {
		return domain.Region{}, err
	}
	id, err := parseCode(code)
	if err != nil {
		return domain.Region{}, err
	}
	r := domain.Region{ID: id, Name: name}
	if geometry != nil {
		r.Geometry = json.RawMessage(*geometry)
	}
	return r, nil
}
